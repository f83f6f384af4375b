package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/pkg/enums"
)

// TerminalSession binds a kiosk device to a store for the duration of a shift.
// At most one active session may exist per (store, device); the partial unique
// index in the schema enforces it.
type TerminalSession struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	DeviceNumber int                 `gorm:"column:device_number;not null"`
	Status       enums.SessionStatus `gorm:"column:status;type:session_status;not null;default:'active'"`
	ClosedReason *string             `gorm:"column:closed_reason"`
	LastActiveAt time.Time           `gorm:"column:last_active_at;not null"`
	ExpiresAt    time.Time           `gorm:"column:expires_at;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
