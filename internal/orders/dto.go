package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/pkg/enums"
)

// CreateItemOptionInput is a modifier selected on a cart line.
type CreateItemOptionInput struct {
	OptionID        uuid.UUID
	Name            string
	PriceDeltaCents int64
}

// CreateItemInput is one cart line as staged by the kiosk client. Prices are
// catalog snapshots; the ledger re-derives every total from them.
type CreateItemInput struct {
	ProductID      uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int64
	Options        []CreateItemOptionInput
}

// CreateInput carries a checkout request into the ledger.
type CreateInput struct {
	StoreID         uuid.UUID
	SessionID       *uuid.UUID
	DeviceNumber    *int
	FulfillmentKind enums.FulfillmentKind
	Currency        enums.Currency
	Items           []CreateItemInput
	// ExpectedTotalCents is the client's displayed total, validated against the
	// server-computed one when present. Never used as the stored total.
	ExpectedTotalCents *int64
}

// SignalSource identifies which channel produced a payment signal.
type SignalSource string

const (
	SignalSourceWebhook SignalSource = "webhook"
	SignalSourceClient  SignalSource = "client"
)

// TransitionSignal is the payment evidence accompanying a state change.
type TransitionSignal struct {
	Source     SignalSource
	Outcome    enums.PaymentOutcome
	PaymentRef *string
	OccurredAt time.Time
}
