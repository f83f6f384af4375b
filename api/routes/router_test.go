package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/internal/payments"
	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/auth"
	"github.com/localbites/kiosk-backend/pkg/config"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

type stubTerminals struct {
	session *models.TerminalSession
	token   string
}

func (s *stubTerminals) Open(context.Context, terminals.OpenInput) (*terminals.OpenResult, error) {
	return &terminals.OpenResult{Session: s.session, Token: s.token}, nil
}

func (s *stubTerminals) Heartbeat(context.Context, uuid.UUID) (*models.TerminalSession, error) {
	return s.session, nil
}

func (s *stubTerminals) Close(context.Context, uuid.UUID, string) error { return nil }

func (s *stubTerminals) IsActive(context.Context, uuid.UUID) (bool, error) { return true, nil }

func (s *stubTerminals) Touch(context.Context, *gorm.DB, uuid.UUID) error { return nil }

type stubOrders struct {
	order *models.Order
}

func (s *stubOrders) Create(context.Context, orders.CreateInput) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrders) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrders) ApplyTransition(context.Context, uuid.UUID, enums.OrderStatus, orders.TransitionSignal) (*models.Order, error) {
	return s.order, nil
}

type stubConfirmer struct{}

func (stubConfirmer) ConfirmClient(context.Context, uuid.UUID, *string) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (stubConfirmer) CancelClient(context.Context, uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

type stubWebhookHandler struct{}

func (stubWebhookHandler) HandleWebhook(context.Context, payments.Signal) error { return nil }

type stubVerifier struct{ ok bool }

func (s stubVerifier) VerifyWebhookSignature([]byte, string) bool { return s.ok }

type stubReplayGuard struct{}

func (stubReplayGuard) CheckAndMark(context.Context, string) (bool, error) { return false, nil }
func (stubReplayGuard) Delete(context.Context, string) error               { return nil }

type stubAlerts struct{}

func (stubAlerts) ListPending(context.Context, uuid.UUID) ([]models.TerminalAlert, error) {
	return nil, nil
}

func (stubAlerts) Ack(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func testRouter(t *testing.T) (http.Handler, config.JWTConfig) {
	t.Helper()
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "kiosk", ExpirationMinutes: 60}
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = jwtCfg

	session := &models.TerminalSession{
		ID:           uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
		Status:       enums.SessionStatusActive,
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Terminals:   &stubTerminals{session: session, token: "token"},
		Orders:      &stubOrders{order: &models.Order{ID: uuid.New()}},
		Payments:    stubConfirmer{},
		Webhook:     stubWebhookHandler{},
		Verifier:    stubVerifier{ok: true},
		ReplayGuard: stubReplayGuard{},
		Alerts:      stubAlerts{},
	})
	return handler, jwtCfg
}

func TestRouterHealthLive(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterProtectedRoutesRequireToken(t *testing.T) {
	handler, _ := testRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sessions/heartbeat"},
		{http.MethodPost, "/api/v1/sessions/close"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/orders/3b95cbb1-94a4-4da8-a6a7-716e5ab67e2b/payment/cancel"},
		{http.MethodGet, "/api/v1/alerts"},
	}
	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equalf(t, http.StatusUnauthorized, resp.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouterSessionOpenIsPublic(t *testing.T) {
	handler, _ := testRouter(t)

	body := `{"store_id":"` + uuid.NewString() + `","device_number":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestRouterAuthenticatedAlertPoll(t *testing.T) {
	handler, jwtCfg := testRouter(t)

	token, err := auth.MintTerminalToken(jwtCfg, time.Now(), auth.TerminalTokenPayload{
		SessionID:    uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterWebhookRejectsBadSignature(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "kiosk", ExpirationMinutes: 60}
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = jwtCfg

	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Terminals:   &stubTerminals{},
		Orders:      &stubOrders{},
		Payments:    stubConfirmer{},
		Webhook:     stubWebhookHandler{},
		Verifier:    stubVerifier{ok: false},
		ReplayGuard: stubReplayGuard{},
		Alerts:      stubAlerts{},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
