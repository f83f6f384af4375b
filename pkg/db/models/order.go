package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/pkg/enums"
)

// Order is the ledger row for a single kiosk checkout.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID             `gorm:"column:store_id;type:uuid;not null"`
	SessionID        *uuid.UUID            `gorm:"column:session_id;type:uuid"`
	DeviceNumber     *int                  `gorm:"column:device_number"`
	FulfillmentKind  enums.FulfillmentKind `gorm:"column:fulfillment_kind;type:fulfillment_kind;not null;default:'takeout'"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status           enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	SubtotalCents    int64                 `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int64                 `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int64                 `gorm:"column:total_cents;not null"`
	PaymentRef       *string               `gorm:"column:payment_ref"`
	Items            []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt      *time.Time            `gorm:"column:completed_at"`
	FailedAt         *time.Time            `gorm:"column:failed_at"`
	CancelledAt      *time.Time            `gorm:"column:cancelled_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
