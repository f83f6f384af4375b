package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/responses"
	internalorders "github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/internal/payments"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/square"
)

// PaymentSignalHandler is the webhook slice of the reconciler.
type PaymentSignalHandler interface {
	HandleWebhook(ctx context.Context, signal payments.Signal) error
}

type signatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// ReplayGuard suppresses duplicate deliveries of the same event id.
type ReplayGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// squareEvent is the subset of Square's webhook envelope the kiosk reads.
type squareEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		ID     string `json:"id"`
		Object struct {
			Payment struct {
				ID          string `json:"id"`
				Status      string `json:"status"`
				ReferenceID string `json:"reference_id"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// SquarePayment ingests payment.created/payment.updated deliveries. After the
// signature checks out the response is always 200 with {"status":"ok"}:
// anything the reconciler cannot apply is logged and dropped, never bounced
// back for Square to retry forever.
func SquarePayment(svc PaymentSignalHandler, verifier signatureVerifier, guard ReplayGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(square.SignatureHeader)
		if !verifier.VerifyWebhookSignature(body, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event squareEvent
		if err := json.Unmarshal(body, &event); err != nil {
			if logg != nil {
				logg.Error(ctx, "undecodable square event", err)
			}
			writeOK(w)
			return
		}

		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = event.Data.ID
		}
		if eventID != "" {
			already, err := guard.CheckAndMark(ctx, eventID)
			if err != nil {
				// Dedupe is best-effort; the reconciler tolerates duplicates.
				if logg != nil {
					logg.Error(ctx, "webhook replay check failed, processing without dedupe", err)
				}
			} else if already {
				writeOK(w)
				return
			}
		}

		signal, ok := buildSignal(event)
		if !ok {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event_type", event.Type), "ignoring non-payment square event")
			}
			writeOK(w)
			return
		}

		if err := svc.HandleWebhook(ctx, signal); err != nil {
			// Still ack: this one signal is dropped and the next corrects it.
			// Release the guard so Square's retry can land once we recover.
			if logg != nil {
				logg.Error(ctx, "webhook signal not applied, acking anyway", err)
			}
			if eventID != "" {
				_ = guard.Delete(ctx, eventID)
			}
		}

		writeOK(w)
	}
}

func buildSignal(event squareEvent) (payments.Signal, bool) {
	if !strings.HasPrefix(event.Type, "payment.") {
		return payments.Signal{}, false
	}
	payment := event.Data.Object.Payment
	outcome, ok := payments.OutcomeForGatewayStatus(payment.Status)
	if !ok {
		return payments.Signal{}, false
	}

	signal := payments.Signal{
		Source:     internalorders.SignalSourceWebhook,
		EventID:    event.EventID,
		Outcome:    outcome,
		OccurredAt: event.CreatedAt,
	}
	if payment.ID != "" {
		ref := payment.ID
		signal.PaymentRef = &ref
	}
	// Square carries our order uuid in reference_id when checkout set it.
	if orderRef, err := uuid.Parse(payment.ReferenceID); err == nil {
		signal.OrderRef = &orderRef
	}
	return signal, true
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
