package payloads

import (
	"time"

	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a new order entering the ledger.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID             `json:"order_id"`
	StoreID         uuid.UUID             `json:"store_id"`
	SessionID       *uuid.UUID            `json:"session_id,omitempty"`
	DeviceNumber    *int                  `json:"device_number,omitempty"`
	FulfillmentKind enums.FulfillmentKind `json:"fulfillment_kind"`
	TotalCents      int64                 `json:"total_cents"`
	Currency        enums.Currency        `json:"currency"`
}

// OrderTransitionedEvent is emitted for every accepted state transition; the
// event type carries the target state, the payload carries the edge.
type OrderTransitionedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	StoreID      uuid.UUID         `json:"store_id"`
	SessionID    *uuid.UUID        `json:"session_id,omitempty"`
	DeviceNumber *int              `json:"device_number,omitempty"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	PaymentRef   *string           `json:"payment_ref,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// SessionOpenedEvent is emitted when a terminal binds to a store/device slot.
type SessionOpenedEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	StoreID      uuid.UUID `json:"store_id"`
	DeviceNumber int       `json:"device_number"`
	Takeover     bool      `json:"takeover"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionClosedEvent is emitted on explicit close.
type SessionClosedEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	StoreID      uuid.UUID `json:"store_id"`
	DeviceNumber int       `json:"device_number"`
	Reason       string    `json:"reason,omitempty"`
}

// SessionExpiredEvent is emitted by the sweep for each idle session it retires.
type SessionExpiredEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	StoreID      uuid.UUID `json:"store_id"`
	DeviceNumber int       `json:"device_number"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// AlertRaisedEvent carries the terminal push payload for a ready order.
type AlertRaisedEvent struct {
	AlertID       uuid.UUID `json:"alert_id"`
	SessionID     uuid.UUID `json:"session_id"`
	OrderID       uuid.UUID `json:"order_id"`
	StoreID       uuid.UUID `json:"store_id"`
	DeviceNumber  int       `json:"device_number"`
	Title         string    `json:"title"`
	OrderRef      string    `json:"order_ref"`
	Message       string    `json:"message"`
	Sound         bool      `json:"sound"`
	RepeatVibrate bool      `json:"repeat_vibrate"`
}
