package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/outbox/payloads"
)

var timeNow = time.Now

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SessionToucher lets checkout count as terminal activity without the ledger
// depending on the whole session registry.
type SessionToucher interface {
	Touch(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
}

// Service is the sole authority over order status. Every component that wants
// to move an order calls ApplyTransition instead of writing status itself.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ApplyTransition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, signal TransitionSignal) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	sessions SessionToucher
	pricer   *Pricer
	currency enums.Currency
}

// NewService wires order ledger dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, sessions SessionToucher, pricer *Pricer, currency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session toucher required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricer required")
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid default currency %q", currency)
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		sessions: sessions,
		pricer:   pricer,
		currency: currency,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !input.FulfillmentKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment kind")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	currency := input.Currency
	if currency == "" {
		currency = s.currency
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	items, subtotal, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	var deliveryFee int64
	if input.FulfillmentKind == enums.FulfillmentDelivery {
		deliveryFee = s.pricer.DeliveryFeeCents(subtotal)
	}
	total := subtotal + deliveryFee

	if input.ExpectedTotalCents != nil && *input.ExpectedTotalCents != total {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total mismatch").
			WithDetails(map[string]any{
				"expected_total_cents": *input.ExpectedTotalCents,
				"computed_total_cents": total,
			})
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if input.SessionID != nil {
			if err := s.sessions.Touch(ctx, tx, *input.SessionID); err != nil {
				return err
			}
		}

		created, err := s.repo.WithTx(tx).Create(ctx, &models.Order{
			StoreID:          input.StoreID,
			SessionID:        input.SessionID,
			DeviceNumber:     input.DeviceNumber,
			FulfillmentKind:  input.FulfillmentKind,
			Currency:         currency,
			Status:           enums.OrderStatusPendingPayment,
			SubtotalCents:    subtotal,
			DeliveryFeeCents: deliveryFee,
			TotalCents:       total,
			Items:            items,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         actorFor(created),
			Data: payloads.OrderCreatedEvent{
				OrderID:         created.ID,
				StoreID:         created.StoreID,
				SessionID:       created.SessionID,
				DeviceNumber:    created.DeviceNumber,
				FulfillmentKind: created.FulfillmentKind,
				TotalCents:      created.TotalCents,
				Currency:        created.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ApplyTransition is the single mutation entry point for order status. The
// row is locked for the duration so racing signals serialize; a same-state
// request is a no-op, which is what makes duplicate signals harmless.
func (s *service) ApplyTransition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, signal TransitionSignal) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		order = current

		if current.Status == target {
			return s.backfillPaymentRef(ctx, repo, current, signal)
		}
		if current.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s and cannot transition to %s", current.Status, target))
		}
		if !legalEdge(current.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("transition %s -> %s is not allowed", current.Status, target))
		}

		now := timeNow().UTC()
		occurred := signal.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}

		updates := map[string]any{"status": target}
		switch target {
		case enums.OrderStatusCompleted:
			updates["completed_at"] = now
		case enums.OrderStatusFailed:
			updates["failed_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		}
		if signal.PaymentRef != nil && current.PaymentRef == nil {
			updates["payment_ref"] = *signal.PaymentRef
		}

		if _, err := repo.UpdateOrder(ctx, current.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		from := current.Status
		current.Status = target
		switch target {
		case enums.OrderStatusCompleted:
			current.CompletedAt = &now
		case enums.OrderStatusFailed:
			current.FailedAt = &now
		case enums.OrderStatusCancelled:
			current.CancelledAt = &now
		}
		if signal.PaymentRef != nil && current.PaymentRef == nil {
			current.PaymentRef = signal.PaymentRef
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventTypeFor(target),
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         actorFor(current),
			OccurredAt:    occurred,
			Data: payloads.OrderTransitionedEvent{
				OrderID:      current.ID,
				StoreID:      current.StoreID,
				SessionID:    current.SessionID,
				DeviceNumber: current.DeviceNumber,
				FromStatus:   from,
				ToStatus:     target,
				PaymentRef:   current.PaymentRef,
				OccurredAt:   occurred,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// backfillPaymentRef records the gateway reference on a same-state no-op so a
// later signal can resolve the order by ref.
func (s *service) backfillPaymentRef(ctx context.Context, repo Repository, order *models.Order, signal TransitionSignal) error {
	if signal.PaymentRef == nil || order.PaymentRef != nil {
		return nil
	}
	if _, err := repo.UpdateOrder(ctx, order.ID, map[string]any{"payment_ref": *signal.PaymentRef}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backfill payment ref")
	}
	order.PaymentRef = signal.PaymentRef
	return nil
}

func buildItems(inputs []CreateItemInput) ([]models.OrderItem, int64, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	var subtotal int64
	for _, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if in.Quantity <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if in.UnitPriceCents < 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item unit price must not be negative")
		}

		var optionDelta int64
		options := make([]models.OrderItemOption, 0, len(in.Options))
		for _, opt := range in.Options {
			if opt.OptionID == uuid.Nil {
				return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "option id required")
			}
			optionDelta += opt.PriceDeltaCents
			options = append(options, models.OrderItemOption{
				OptionID:        opt.OptionID,
				Name:            opt.Name,
				PriceDeltaCents: opt.PriceDeltaCents,
			})
		}

		lineTotal := (in.UnitPriceCents + optionDelta) * int64(in.Quantity)
		if lineTotal < 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "item total must not be negative")
		}
		subtotal += lineTotal

		items = append(items, models.OrderItem{
			ProductID:      in.ProductID,
			Name:           in.Name,
			Quantity:       in.Quantity,
			UnitPriceCents: in.UnitPriceCents,
			TotalCents:     lineTotal,
			Options:        options,
		})
	}
	return items, subtotal, nil
}

// legalEdge lists the forward edges of the ledger state machine. A paid
// signal may land while the order is still pending_payment (card captures
// settle in one step), so pending_payment -> completed is a legal skip.
func legalEdge(from, to enums.OrderStatus) bool {
	switch from {
	case enums.OrderStatusPendingPayment:
		switch to {
		case enums.OrderStatusProcessing, enums.OrderStatusCompleted, enums.OrderStatusFailed, enums.OrderStatusCancelled:
			return true
		}
	case enums.OrderStatusProcessing:
		switch to {
		case enums.OrderStatusCompleted, enums.OrderStatusCancelled:
			return true
		}
	}
	return false
}

func eventTypeFor(target enums.OrderStatus) enums.OutboxEventType {
	switch target {
	case enums.OrderStatusProcessing:
		return enums.EventOrderProcessing
	case enums.OrderStatusCompleted:
		return enums.EventOrderCompleted
	case enums.OrderStatusFailed:
		return enums.EventOrderFailed
	case enums.OrderStatusCancelled:
		return enums.EventOrderCancelled
	}
	return enums.EventOrderCreated
}

func actorFor(order *models.Order) *outbox.ActorRef {
	if order.SessionID == nil {
		return nil
	}
	store := order.StoreID
	actor := &outbox.ActorRef{
		SessionID: *order.SessionID,
		StoreID:   &store,
	}
	if order.DeviceNumber != nil {
		actor.DeviceNumber = *order.DeviceNumber
	}
	return actor
}
