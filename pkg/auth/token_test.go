package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "kiosk-backend",
		ExpirationMinutes: 720,
	}
}

func TestMintAndParseTerminalToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	sessionID := uuid.New()
	storeID := uuid.New()

	payload := TerminalTokenPayload{
		SessionID:    sessionID,
		StoreID:      storeID,
		DeviceNumber: 3,
	}

	token, err := MintTerminalToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint terminal token: %v", err)
	}

	claims, err := ParseTerminalToken(cfg, token)
	if err != nil {
		t.Fatalf("parse terminal token: %v", err)
	}

	if claims.SessionID != sessionID {
		t.Fatalf("expected session_id %s, got %s", sessionID, claims.SessionID)
	}
	if claims.StoreID != storeID {
		t.Fatalf("store id not preserved")
	}
	if claims.DeviceNumber != 3 {
		t.Fatalf("unexpected device number %d", claims.DeviceNumber)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.Subject != sessionID.String() {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
	if !claims.ExpiresAt.After(now.Add(11 * time.Hour)) {
		t.Fatalf("expiry not honoring configured ttl: %s", claims.ExpiresAt)
	}
}

func TestMintTerminalTokenValidation(t *testing.T) {
	now := time.Now().UTC()
	base := TerminalTokenPayload{
		SessionID:    uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
	}

	cases := []struct {
		name    string
		cfg     config.JWTConfig
		mutate  func(*TerminalTokenPayload)
		message string
	}{
		{
			name:    "missing secret",
			cfg:     config.JWTConfig{Issuer: "kiosk-backend", ExpirationMinutes: 1},
			message: "jwt secret is required",
		},
		{
			name:    "missing issuer",
			cfg:     config.JWTConfig{Secret: "s", ExpirationMinutes: 1},
			message: "jwt issuer is required",
		},
		{
			name:    "non-positive expiration",
			cfg:     config.JWTConfig{Secret: "s", Issuer: "i"},
			message: "expiration minutes must be positive",
		},
		{
			name:    "nil session id",
			cfg:     testJWTConfig(),
			mutate:  func(p *TerminalTokenPayload) { p.SessionID = uuid.Nil },
			message: "session id is required",
		},
		{
			name:    "nil store id",
			cfg:     testJWTConfig(),
			mutate:  func(p *TerminalTokenPayload) { p.StoreID = uuid.Nil },
			message: "store id is required",
		},
		{
			name:    "zero device number",
			cfg:     testJWTConfig(),
			mutate:  func(p *TerminalTokenPayload) { p.DeviceNumber = 0 },
			message: "device number must be positive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := base
			if tc.mutate != nil {
				tc.mutate(&payload)
			}
			_, err := MintTerminalToken(tc.cfg, now, payload)
			if err == nil || !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("expected error containing %q, got %v", tc.message, err)
			}
		})
	}
}

func TestParseTerminalTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintTerminalToken(cfg, time.Now().UTC(), TerminalTokenPayload{
		SessionID:    uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
	})
	if err != nil {
		t.Fatalf("mint terminal token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseTerminalToken(other, token); err == nil {
		t.Fatalf("expected signature validation error")
	}
}

func TestParseTerminalTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	past := time.Now().UTC().Add(-24 * time.Hour)
	token, err := MintTerminalToken(cfg, past, TerminalTokenPayload{
		SessionID:    uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
	})
	if err != nil {
		t.Fatalf("mint terminal token: %v", err)
	}

	if _, err := ParseTerminalToken(cfg, token); err == nil {
		t.Fatalf("expected expiry validation error")
	}
}
