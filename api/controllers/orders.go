package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/middleware"
	"github.com/localbites/kiosk-backend/api/responses"
	"github.com/localbites/kiosk-backend/api/validators"
	internalorders "github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

type createOrderItemOption struct {
	OptionID        uuid.UUID `json:"option_id" validate:"required"`
	Name            string    `json:"name" validate:"required,max=200"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
}

type createOrderItem struct {
	ProductID      uuid.UUID               `json:"product_id" validate:"required"`
	Name           string                  `json:"name" validate:"required,max=200"`
	Quantity       int                     `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int64                   `json:"unit_price_cents" validate:"min=0"`
	Options        []createOrderItemOption `json:"options" validate:"dive"`
}

type createOrderRequest struct {
	FulfillmentKind    string            `json:"fulfillment_kind" validate:"required,oneof=dine_in takeout delivery"`
	Currency           string            `json:"currency"`
	Items              []createOrderItem `json:"items" validate:"required,min=1,dive"`
	ExpectedTotalCents *int64            `json:"expected_total_cents"`
}

type orderItemOptionView struct {
	OptionID        uuid.UUID `json:"option_id"`
	Name            string    `json:"name"`
	PriceDeltaCents int64     `json:"price_delta_cents"`
}

type orderItemView struct {
	ProductID      uuid.UUID             `json:"product_id"`
	Name           string                `json:"name"`
	Quantity       int                   `json:"quantity"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	TotalCents     int64                 `json:"total_cents"`
	Options        []orderItemOptionView `json:"options,omitempty"`
}

type orderView struct {
	ID               uuid.UUID       `json:"id"`
	StoreID          uuid.UUID       `json:"store_id"`
	SessionID        *uuid.UUID      `json:"session_id,omitempty"`
	DeviceNumber     *int            `json:"device_number,omitempty"`
	FulfillmentKind  string          `json:"fulfillment_kind"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	SubtotalCents    int64           `json:"subtotal_cents"`
	DeliveryFeeCents int64           `json:"delivery_fee_cents"`
	TotalCents       int64           `json:"total_cents"`
	PaymentRef       *string         `json:"payment_ref,omitempty"`
	Items            []orderItemView `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	FailedAt         *time.Time      `json:"failed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		ID:               order.ID,
		StoreID:          order.StoreID,
		SessionID:        order.SessionID,
		DeviceNumber:     order.DeviceNumber,
		FulfillmentKind:  string(order.FulfillmentKind),
		Currency:         string(order.Currency),
		Status:           string(order.Status),
		SubtotalCents:    order.SubtotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		TotalCents:       order.TotalCents,
		PaymentRef:       order.PaymentRef,
		Items:            make([]orderItemView, 0, len(order.Items)),
		CreatedAt:        order.CreatedAt,
		CompletedAt:      order.CompletedAt,
		FailedAt:         order.FailedAt,
		CancelledAt:      order.CancelledAt,
	}
	for _, item := range order.Items {
		itemView := orderItemView{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		}
		for _, option := range item.Options {
			itemView.Options = append(itemView.Options, orderItemOptionView{
				OptionID:        option.OptionID,
				Name:            option.Name,
				PriceDeltaCents: option.PriceDeltaCents,
			})
		}
		view.Items = append(view.Items, itemView)
	}
	return view
}

// OrderCreate runs kiosk checkout for the authenticated session. Totals are
// recomputed server-side; the client's expected total is only a cross-check.
func OrderCreate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		storeID := middleware.StoreIDFromContext(r.Context())
		device := middleware.DeviceNumberFromContext(r.Context())
		if sessionID == uuid.Nil || storeID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		input := internalorders.CreateInput{
			StoreID:            storeID,
			SessionID:          &sessionID,
			DeviceNumber:       &device,
			FulfillmentKind:    enums.FulfillmentKind(req.FulfillmentKind),
			Currency:           enums.Currency(req.Currency),
			Items:              make([]internalorders.CreateItemInput, 0, len(req.Items)),
			ExpectedTotalCents: req.ExpectedTotalCents,
		}
		for _, item := range req.Items {
			itemInput := internalorders.CreateItemInput{
				ProductID:      item.ProductID,
				Name:           validators.SanitizeString(item.Name, 200),
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			}
			for _, option := range item.Options {
				itemInput.Options = append(itemInput.Options, internalorders.CreateItemOptionInput{
					OptionID:        option.OptionID,
					Name:            validators.SanitizeString(option.Name, 200),
					PriceDeltaCents: option.PriceDeltaCents,
				})
			}
			input.Items = append(input.Items, itemInput)
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// OrderGet returns a single order with items and totals. Orders are scoped to
// the store the session is bound to.
func OrderGet(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if storeID := middleware.StoreIDFromContext(r.Context()); storeID != uuid.Nil && order.StoreID != storeID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id").WithDetails(map[string]any{"order_id": raw})
	}
	return orderID, nil
}
