package alerts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/outbox/idempotency"
	"github.com/localbites/kiosk-backend/pkg/outbox/payloads"
)

type stubAlertsRepo struct {
	alerts    map[uuid.UUID]*models.TerminalAlert
	createErr error
}

func newStubAlertsRepo(alerts ...*models.TerminalAlert) *stubAlertsRepo {
	repo := &stubAlertsRepo{alerts: make(map[uuid.UUID]*models.TerminalAlert)}
	for _, alert := range alerts {
		repo.alerts[alert.ID] = alert
	}
	return repo
}

func (s *stubAlertsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubAlertsRepo) Create(ctx context.Context, alert *models.TerminalAlert) error {
	if s.createErr != nil {
		return s.createErr
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	s.alerts[alert.ID] = alert
	return nil
}

func (s *stubAlertsRepo) ListPending(ctx context.Context, sessionID uuid.UUID) ([]models.TerminalAlert, error) {
	var pending []models.TerminalAlert
	for _, alert := range s.alerts {
		if alert.SessionID == sessionID && alert.AckedAt == nil {
			pending = append(pending, *alert)
		}
	}
	return pending, nil
}

func (s *stubAlertsRepo) Ack(ctx context.Context, sessionID, alertID uuid.UUID, now time.Time) (AckResult, error) {
	alert, ok := s.alerts[alertID]
	if !ok || alert.SessionID != sessionID {
		return AckResult{}, nil
	}
	if alert.AckedAt != nil {
		return AckResult{Found: true}, nil
	}
	alert.AckedAt = &now
	return AckResult{Updated: true, Found: true}, nil
}

func TestServiceAckIsIdempotent(t *testing.T) {
	sessionID := uuid.New()
	alert := &models.TerminalAlert{ID: uuid.New(), SessionID: sessionID}
	repo := newStubAlertsRepo(alert)
	svc, err := NewService(repo)
	require.NoError(t, err)

	require.NoError(t, svc.Ack(context.Background(), sessionID, alert.ID))
	require.NotNil(t, alert.AckedAt)
	first := *alert.AckedAt

	require.NoError(t, svc.Ack(context.Background(), sessionID, alert.ID))
	assert.Equal(t, first, *alert.AckedAt)
}

func TestServiceAckUnknownAlert(t *testing.T) {
	svc, err := NewService(newStubAlertsRepo())
	require.NoError(t, err)

	err = svc.Ack(context.Background(), uuid.New(), uuid.New())
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestServiceListPending(t *testing.T) {
	sessionID := uuid.New()
	pending := &models.TerminalAlert{ID: uuid.New(), SessionID: sessionID}
	ackedAt := time.Now().UTC()
	acked := &models.TerminalAlert{ID: uuid.New(), SessionID: sessionID, AckedAt: &ackedAt}
	repo := newStubAlertsRepo(pending, acked)
	svc, err := NewService(repo)
	require.NoError(t, err)

	alerts, err := svc.ListPending(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, pending.ID, alerts[0].ID)
}

// Consumer plumbing below.

type stubSessionChecker struct {
	active map[uuid.UUID]bool
	err    error
}

func (s *stubSessionChecker) IsActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[sessionID], nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "kiosk:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func newTestConsumer(t *testing.T, repo Repository, sessions sessionChecker, publisher *stubOutboxPublisher) *Consumer {
	t.Helper()
	manager, err := idempotency.NewManager(&fakeIdempotencyStore{}, time.Hour)
	require.NoError(t, err)
	return &Consumer{
		repo:        repo,
		sessions:    sessions,
		tx:          stubTxRunner{},
		outbox:      publisher,
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "test"}),
	}
}

func newPubsubMessage(t *testing.T, eventType string, payload payloads.OrderTransitionedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Attributes: map[string]string{"event_type": eventType},
		Data:       envelope,
	}
}

func completedEventPayload(t *testing.T, sessionID uuid.UUID) payloads.OrderTransitionedEvent {
	t.Helper()
	device := 2
	return payloads.OrderTransitionedEvent{
		OrderID:      uuid.New(),
		StoreID:      uuid.New(),
		SessionID:    &sessionID,
		DeviceNumber: &device,
		FromStatus:   enums.OrderStatusProcessing,
		ToStatus:     enums.OrderStatusCompleted,
		OccurredAt:   time.Now().UTC(),
	}
}

func TestRaiseAlertCreatesRowAndEmitsEvent(t *testing.T) {
	sessionID := uuid.New()
	repo := newStubAlertsRepo()
	sessions := &stubSessionChecker{active: map[uuid.UUID]bool{sessionID: true}}
	publisher := &stubOutboxPublisher{}
	consumer := newTestConsumer(t, repo, sessions, publisher)

	payload := completedEventPayload(t, sessionID)
	require.NoError(t, consumer.raiseAlert(context.Background(), payload, context.Background()))

	require.Len(t, repo.alerts, 1)
	for _, alert := range repo.alerts {
		assert.Equal(t, sessionID, alert.SessionID)
		assert.Equal(t, payload.OrderID, alert.OrderID)
		assert.Equal(t, 2, alert.DeviceNumber)
		assert.Equal(t, "Order ready", alert.Title)
		assert.Contains(t, alert.Message, alert.OrderRef)
	}

	require.Len(t, publisher.events, 1)
	assert.Equal(t, enums.EventAlertRaised, publisher.events[0].EventType)
	data, ok := publisher.events[0].Data.(payloads.AlertRaisedEvent)
	require.True(t, ok)
	assert.True(t, data.Sound)
	assert.True(t, data.RepeatVibrate)
}

func TestRaiseAlertSkipsInactiveSession(t *testing.T) {
	sessionID := uuid.New()
	repo := newStubAlertsRepo()
	sessions := &stubSessionChecker{active: map[uuid.UUID]bool{}}
	publisher := &stubOutboxPublisher{}
	consumer := newTestConsumer(t, repo, sessions, publisher)

	require.NoError(t, consumer.raiseAlert(context.Background(), completedEventPayload(t, sessionID), context.Background()))
	assert.Empty(t, repo.alerts)
	assert.Empty(t, publisher.events)
}

func TestProcessSkipsOtherEventTypes(t *testing.T) {
	repo := newStubAlertsRepo()
	consumer := newTestConsumer(t, repo, &stubSessionChecker{}, &stubOutboxPublisher{})

	result := consumer.process(context.Background(), newPubsubMessage(t, string(enums.EventOrderCreated), payloads.OrderTransitionedEvent{}))
	assert.True(t, result.ack)
	assert.Empty(t, repo.alerts)
}

func TestProcessDeduplicatesEvents(t *testing.T) {
	sessionID := uuid.New()
	repo := newStubAlertsRepo()
	sessions := &stubSessionChecker{active: map[uuid.UUID]bool{sessionID: true}}
	consumer := newTestConsumer(t, repo, sessions, &stubOutboxPublisher{})

	payload := completedEventPayload(t, sessionID)
	msg := newPubsubMessage(t, string(enums.EventOrderCompleted), payload)

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Len(t, repo.alerts, 1)

	// Same event id again: deduplicated before any repo work.
	repo.alerts = make(map[uuid.UUID]*models.TerminalAlert)
	result = consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, repo.alerts)
}

func TestProcessSkipsSessionlessOrders(t *testing.T) {
	repo := newStubAlertsRepo()
	consumer := newTestConsumer(t, repo, &stubSessionChecker{}, &stubOutboxPublisher{})

	payload := payloads.OrderTransitionedEvent{
		OrderID:    uuid.New(),
		StoreID:    uuid.New(),
		FromStatus: enums.OrderStatusProcessing,
		ToStatus:   enums.OrderStatusCompleted,
	}
	result := consumer.process(context.Background(), newPubsubMessage(t, string(enums.EventOrderCompleted), payload))
	assert.True(t, result.ack)
	assert.Empty(t, repo.alerts)
}
