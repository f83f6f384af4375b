package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/api/responses"
	pkgauth "github.com/localbites/kiosk-backend/pkg/auth"
	"github.com/localbites/kiosk-backend/pkg/config"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

// SessionVerifier re-checks liveness against the registry; a token alone
// never proves the session is still open.
type SessionVerifier interface {
	IsActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// TerminalAuth validates a terminal bearer token and seeds the request
// context with the session identity.
func TerminalAuth(cfg config.JWTConfig, sessions SessionVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseTerminalToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil {
				active, err := sessions.IsActive(r.Context(), claims.SessionID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !active {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is no longer active"))
					return
				}
			}

			ctx := WithSession(r.Context(), claims.SessionID, claims.StoreID, claims.DeviceNumber)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"session_id":    claims.SessionID.String(),
					"store_id":      claims.StoreID.String(),
					"device_number": claims.DeviceNumber,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
