package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/responses"
	"github.com/localbites/kiosk-backend/api/validators"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

// PaymentConfirmer is the client-confirmation slice of the reconciler.
type PaymentConfirmer interface {
	ConfirmClient(ctx context.Context, orderID uuid.UUID, txRef *string) (*models.Order, error)
}

// PaymentCanceller abandons an order and voids its uncaptured payment.
type PaymentCanceller interface {
	CancelClient(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// PaymentService is the client-facing payment surface the router wires.
type PaymentService interface {
	PaymentConfirmer
	PaymentCanceller
}

type confirmPaymentRequest struct {
	TransactionRef *string `json:"transaction_ref"`
}

// PaymentConfirm lets the terminal report a finished gateway flow. The server
// re-verifies against the gateway before any state changes; the client's word
// alone moves nothing.
func PaymentConfirm(svc PaymentConfirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmClient(r.Context(), orderID, req.TransactionRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}

// PaymentCancel lets the terminal walk away from an unpaid order. The
// payment is voided at the gateway first; a captured payment cannot be
// voided and the attempt fails instead of pretending.
func PaymentCancel(svc PaymentCanceller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelClient(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}
