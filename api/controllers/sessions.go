package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/middleware"
	"github.com/localbites/kiosk-backend/api/responses"
	"github.com/localbites/kiosk-backend/api/validators"
	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

type openSessionRequest struct {
	StoreID      uuid.UUID `json:"store_id" validate:"required"`
	DeviceNumber int       `json:"device_number" validate:"required,min=1"`
	Takeover     bool      `json:"takeover"`
}

type sessionView struct {
	ID           uuid.UUID `json:"id"`
	StoreID      uuid.UUID `json:"store_id"`
	DeviceNumber int       `json:"device_number"`
	Status       string    `json:"status"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type openSessionResponse struct {
	Session  sessionView `json:"session"`
	Token    string      `json:"token"`
	Takeover bool        `json:"takeover"`
}

func newSessionView(session *models.TerminalSession) sessionView {
	return sessionView{
		ID:           session.ID,
		StoreID:      session.StoreID,
		DeviceNumber: session.DeviceNumber,
		Status:       string(session.Status),
		LastActiveAt: session.LastActiveAt,
		ExpiresAt:    session.ExpiresAt,
	}
}

// SessionOpen binds a terminal to a store/device slot and returns the signed
// terminal token. Unauthenticated: this is the entry point that issues
// credentials in the first place.
func SessionOpen(svc terminals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		var req openSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Open(r.Context(), terminals.OpenInput{
			StoreID:      req.StoreID,
			DeviceNumber: req.DeviceNumber,
			Takeover:     req.Takeover,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, openSessionResponse{
			Session:  newSessionView(result.Session),
			Token:    result.Token,
			Takeover: result.Takeover,
		})
	}
}

// SessionHeartbeat refreshes the authenticated session's activity window.
func SessionHeartbeat(svc terminals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		session, err := svc.Heartbeat(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionView(session))
	}
}

// SessionClose retires the authenticated session. Idempotent.
func SessionClose(svc terminals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		if err := svc.Close(r.Context(), sessionID, "client_close"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}
