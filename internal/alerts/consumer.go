package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/localbites/kiosk-backend/pkg/db"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/outbox/idempotency"
	"github.com/localbites/kiosk-backend/pkg/outbox/payloads"
)

const terminalAlertConsumer = "terminal-alerts"

type sessionChecker interface {
	IsActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Consumer watches the orders topic and turns completed orders into terminal
// pickup alerts. The alert row and the alert_raised event commit together;
// the outbox publisher then pushes the payload to the terminal channel.
type Consumer struct {
	repo         Repository
	sessions     sessionChecker
	tx           txRunner
	outbox       outboxPublisher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the alert consumer.
func NewConsumer(repo Repository, sessions sessionChecker, tx txRunner, publisher outboxPublisher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session checker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		sessions:     sessions,
		tx:           tx,
		outbox:       publisher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCompleted) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, terminalAlertConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.OrderTransitionedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, terminalAlertConsumer, eventID)
		return processResult{nack: true}
	}

	if payload.SessionID == nil {
		c.logg.Info(logCtx, "order has no terminal session, skipping alert")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id":   payload.OrderID.String(),
		"session_id": payload.SessionID.String(),
	})

	if err := c.raiseAlert(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "alert handling failed", err)
		_ = c.idempotency.Delete(ctx, terminalAlertConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) raiseAlert(ctx context.Context, payload payloads.OrderTransitionedEvent, logCtx context.Context) error {
	active, err := c.sessions.IsActive(ctx, *payload.SessionID)
	if err != nil {
		return err
	}
	if !active {
		c.logg.Info(logCtx, "session no longer active, alert dropped")
		return nil
	}

	device := 0
	if payload.DeviceNumber != nil {
		device = *payload.DeviceNumber
	}
	orderRef := shortOrderRef(payload.OrderID)

	alert := &models.TerminalAlert{
		ID:           uuid.New(),
		SessionID:    *payload.SessionID,
		OrderID:      payload.OrderID,
		StoreID:      payload.StoreID,
		DeviceNumber: device,
		Title:        "Order ready",
		OrderRef:     orderRef,
		Message:      fmt.Sprintf("Order %s is ready for pickup.", orderRef),
		DeliveredAt:  timeNow().UTC(),
	}

	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := c.repo.WithTx(tx).Create(ctx, alert); err != nil {
			return err
		}
		return c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAlertRaised,
			AggregateType: enums.AggregateTerminalAlert,
			AggregateID:   alert.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				SessionID:    *payload.SessionID,
				StoreID:      &payload.StoreID,
				DeviceNumber: device,
			},
			Data: payloads.AlertRaisedEvent{
				AlertID:       alert.ID,
				SessionID:     *payload.SessionID,
				OrderID:       payload.OrderID,
				StoreID:       payload.StoreID,
				DeviceNumber:  device,
				Title:         alert.Title,
				OrderRef:      alert.OrderRef,
				Message:       alert.Message,
				Sound:         true,
				RepeatVibrate: true,
			},
		})
	})
	if err != nil {
		// A second completed event for the same order already raised it.
		if dbpkg.IsUniqueViolation(err, "terminal_alerts_session_order_key") {
			c.logg.Info(logCtx, "alert already exists for session/order")
			return nil
		}
		return err
	}

	c.logg.Info(logCtx, "terminal alert raised")
	return nil
}

func shortOrderRef(orderID uuid.UUID) string {
	raw := strings.ReplaceAll(orderID.String(), "-", "")
	return strings.ToUpper(raw[:8])
}
