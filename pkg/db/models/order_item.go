package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a priced line on an order. UnitPriceCents is the catalog price
// at checkout time; TotalCents folds in quantity and option deltas.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Name           string            `gorm:"column:name;type:text;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	TotalCents     int64             `gorm:"column:total_cents;not null"`
	Options        []OrderItemOption `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// OrderItemOption is a selected modifier on an order item.
type OrderItemOption struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID     uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	OptionID        uuid.UUID `gorm:"column:option_id;type:uuid;not null"`
	Name            string    `gorm:"column:name;type:text;not null"`
	PriceDeltaCents int64     `gorm:"column:price_delta_cents;not null;default:0"`
}
