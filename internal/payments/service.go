package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/metrics"
)

// Signal is a normalized payment assertion from either channel. Signals may
// arrive duplicated, out of order, or before the order exists; reconciliation
// turns each into at most one legal transition.
type Signal struct {
	Source     orders.SignalSource
	EventID    string
	PaymentRef *string
	OrderRef   *uuid.UUID
	Outcome    enums.PaymentOutcome
	OccurredAt time.Time
}

// Ledger is the slice of the order service the reconciler drives.
type Ledger interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ApplyTransition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, signal orders.TransitionSignal) (*models.Order, error)
}

// Gateway re-verifies payments against the processor's record and voids
// uncaptured payments when a kiosk walks away.
type Gateway interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

type resolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
}

// Service reconciles payment signals into order transitions.
type Service struct {
	ledger  Ledger
	repo    resolver
	gateway Gateway
	logg    *logger.Logger
	metrics *metrics.PaymentSignalMetrics
}

// NewService wires reconciler dependencies. Metrics may be nil in tests.
func NewService(ledger Ledger, repo resolver, gateway Gateway, logg *logger.Logger, m *metrics.PaymentSignalMetrics) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		ledger:  ledger,
		repo:    repo,
		gateway: gateway,
		logg:    logg,
		metrics: m,
	}, nil
}

// HandleWebhook applies a gateway signal. Unresolved signals and illegal
// transitions are swallowed here so the transport layer can always
// acknowledge; the next signal corrects whatever this one could not.
func (s *Service) HandleWebhook(ctx context.Context, signal Signal) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"signal_source": string(signal.Source),
		"event_id":      signal.EventID,
		"outcome":       string(signal.Outcome),
	})

	order, err := s.resolve(ctx, signal)
	if err != nil {
		return err
	}
	if order == nil {
		s.logg.Warn(ctx, "payment signal matched no order, discarding")
		s.metrics.IncUnresolved(string(signal.Source))
		return nil
	}

	return s.apply(ctx, order.ID, signal, true)
}

// ConfirmClient re-verifies the payment with the gateway and applies the
// verified outcome, then returns the resulting order. The client's claim is
// never applied directly.
func (s *Service) ConfirmClient(ctx context.Context, orderID uuid.UUID, txRef *string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ref := txRef
	if ref == nil {
		ref = order.PaymentRef
	}
	if ref == nil || strings.TrimSpace(*ref) == "" {
		// Nothing to verify yet; the webhook path will settle it.
		return order, nil
	}

	payment, err := s.gateway.GetPayment(ctx, *ref)
	if err != nil {
		return nil, err
	}
	outcome, ok := OutcomeForGatewayStatus(paymentStatus(payment))
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "gateway_status", paymentStatus(payment)), "unrecognized gateway payment status")
		return order, nil
	}

	signal := Signal{
		Source:     orders.SignalSourceClient,
		PaymentRef: ref,
		OrderRef:   &orderID,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.apply(ctx, orderID, signal, false); err != nil {
		return nil, err
	}
	return s.ledger.Get(ctx, orderID)
}

// CancelClient abandons an order from the terminal. Any recorded payment is
// voided at the gateway before the order moves to cancelled; a payment Square
// has already captured cannot be voided, and the error surfaces to the caller.
func (s *Service) CancelClient(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}

	if order.PaymentRef != nil && strings.TrimSpace(*order.PaymentRef) != "" {
		if _, err := s.gateway.CancelPayment(ctx, *order.PaymentRef); err != nil {
			return nil, err
		}
	}

	signal := Signal{
		Source:     orders.SignalSourceClient,
		PaymentRef: order.PaymentRef,
		OrderRef:   &orderID,
		Outcome:    enums.PaymentOutcomeCancelled,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.apply(ctx, orderID, signal, false); err != nil {
		return nil, err
	}
	return s.ledger.Get(ctx, orderID)
}

func (s *Service) apply(ctx context.Context, orderID uuid.UUID, signal Signal, swallowConflicts bool) error {
	target, ok := signal.Outcome.OrderTarget()
	if !ok {
		s.logg.Warn(ctx, "payment outcome maps to no order state, discarding")
		s.metrics.IncRejected(string(signal.Source), string(signal.Outcome))
		return nil
	}

	_, err := s.ledger.ApplyTransition(ctx, orderID, target, orders.TransitionSignal{
		Source:     signal.Source,
		Outcome:    signal.Outcome,
		PaymentRef: signal.PaymentRef,
		OccurredAt: signal.OccurredAt,
	})
	if err != nil {
		if domainErr := pkgerrors.As(err); domainErr != nil && domainErr.Code() == pkgerrors.CodeStateConflict {
			s.logg.Warn(s.logg.WithField(ctx, "target_status", string(target)), "illegal transition, signal discarded")
			s.metrics.IncRejected(string(signal.Source), string(signal.Outcome))
			if swallowConflicts {
				return nil
			}
			return err
		}
		return err
	}

	s.metrics.IncApplied(string(signal.Source), string(signal.Outcome))
	return nil
}

// resolve looks the order up by recorded gateway reference first, then by the
// merchant order reference, backfilling the gateway ref on that fallback so
// future signals resolve directly.
func (s *Service) resolve(ctx context.Context, signal Signal) (*models.Order, error) {
	if signal.PaymentRef != nil && strings.TrimSpace(*signal.PaymentRef) != "" {
		order, err := s.repo.FindByPaymentRef(ctx, *signal.PaymentRef)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order by payment ref")
		}
	}

	if signal.OrderRef != nil && *signal.OrderRef != uuid.Nil {
		order, err := s.repo.FindByID(ctx, *signal.OrderRef)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order by id")
		}
	}

	return nil, nil
}

// OutcomeForGatewayStatus maps the processor's payment status onto the
// normalized outcome vocabulary.
func OutcomeForGatewayStatus(status string) (enums.PaymentOutcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETED":
		return enums.PaymentOutcomePaid, true
	case "FAILED":
		return enums.PaymentOutcomeFailed, true
	case "CANCELED":
		return enums.PaymentOutcomeCancelled, true
	case "APPROVED":
		return enums.PaymentOutcomeReady, true
	}
	return "", false
}

func paymentStatus(payment *sq.Payment) string {
	if payment == nil {
		return ""
	}
	status := payment.GetStatus()
	if status == nil {
		return ""
	}
	return *status
}
