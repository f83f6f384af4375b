package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TerminalTokenPayload captures the data available when minting a terminal JWT.
type TerminalTokenPayload struct {
	SessionID    uuid.UUID
	StoreID      uuid.UUID
	DeviceNumber int
	JTI          string
}

// TerminalTokenClaims is the typed JWT issued to a kiosk terminal when its
// session opens. The token binds requests to a session row; liveness is
// always re-checked against the registry, never trusted from the token.
type TerminalTokenClaims struct {
	SessionID    uuid.UUID `json:"session_id"`
	StoreID      uuid.UUID `json:"store_id"`
	DeviceNumber int       `json:"device_number"`
	jwt.RegisteredClaims
}
