package models

import (
	"time"

	"github.com/google/uuid"
)

// TerminalAlert records a pickup-ready notification delivered to a terminal.
// The UNIQUE (session_id, order_id) constraint makes at-most-one-alert-per-order
// a database invariant rather than a process-local one.
type TerminalAlert struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID    uuid.UUID  `gorm:"column:session_id;type:uuid;not null;uniqueIndex:terminal_alerts_session_order_key,priority:1"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:terminal_alerts_session_order_key,priority:2"`
	StoreID      uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	DeviceNumber int        `gorm:"column:device_number;not null"`
	Title        string     `gorm:"column:title;type:text;not null"`
	OrderRef     string     `gorm:"column:order_ref;type:text;not null"`
	Message      string     `gorm:"column:message;type:text;not null"`
	DeliveredAt  time.Time  `gorm:"column:delivered_at;not null"`
	AckedAt      *time.Time `gorm:"column:acked_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
