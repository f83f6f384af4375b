package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/middleware"
	"github.com/localbites/kiosk-backend/api/responses"
	"github.com/localbites/kiosk-backend/internal/alerts"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

type alertView struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	Title       string     `json:"title"`
	OrderRef    string     `json:"order_ref"`
	Message     string     `json:"message"`
	DeliveredAt time.Time  `json:"delivered_at"`
	AckedAt     *time.Time `json:"acked_at,omitempty"`
}

func newAlertView(alert models.TerminalAlert) alertView {
	return alertView{
		ID:          alert.ID,
		OrderID:     alert.OrderID,
		Title:       alert.Title,
		OrderRef:    alert.OrderRef,
		Message:     alert.Message,
		DeliveredAt: alert.DeliveredAt,
		AckedAt:     alert.AckedAt,
	}
}

// AlertsPending returns the session's unacknowledged alerts, oldest first.
// The terminal polls this between pushes.
func AlertsPending(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		pending, err := svc.ListPending(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]alertView, 0, len(pending))
		for _, alert := range pending {
			views = append(views, newAlertView(alert))
		}
		responses.WriteSuccess(w, views)
	}
}

// AlertAck marks an alert as seen. Re-acking succeeds.
func AlertAck(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		raw := chi.URLParam(r, "alertID")
		alertID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert id").WithDetails(map[string]any{"alert_id": raw}))
			return
		}

		if err := svc.Ack(r.Context(), sessionID, alertID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "acked"})
	}
}
