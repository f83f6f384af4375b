package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the terminal that produced the event.
type ActorRef struct {
	SessionID    uuid.UUID  `json:"sessionId"`
	StoreID      *uuid.UUID `json:"storeId,omitempty"`
	DeviceNumber int        `json:"deviceNumber,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
