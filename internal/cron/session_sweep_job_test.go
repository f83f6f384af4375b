package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/outbox"
)

type fakeSweepRepo struct {
	idle      [][]models.TerminalSession
	findCalls int
	expired   [][]uuid.UUID
	findErr   error
	expireErr error
}

func (f *fakeSweepRepo) WithTx(tx *gorm.DB) terminals.Repository { return f }

func (f *fakeSweepRepo) Create(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSweepRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSweepRepo) FindActiveByDevice(ctx context.Context, storeID uuid.UUID, deviceNumber int) (*models.TerminalSession, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSweepRepo) UpdateSession(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	return 0, nil
}

func (f *fakeSweepRepo) TouchActive(ctx context.Context, id uuid.UUID, lastActiveAt, expiresAt time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeSweepRepo) FindActiveExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.TerminalSession, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	call := f.findCalls
	f.findCalls++
	if call >= len(f.idle) {
		return nil, nil
	}
	batch := f.idle[call]
	if limit > 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (f *fakeSweepRepo) ExpireByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	f.expired = append(f.expired, ids)
	return int64(len(ids)), nil
}

type fakeSweepEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeSweepEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type sweepTxRunner struct{}

func (sweepTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func idleSession(lastActive time.Time) models.TerminalSession {
	return models.TerminalSession{
		ID:           uuid.New(),
		StoreID:      uuid.New(),
		DeviceNumber: 1,
		Status:       enums.SessionStatusActive,
		LastActiveAt: lastActive,
	}
}

func newSweepJob(t *testing.T, repo *fakeSweepRepo, emitter *fakeSweepEmitter, batch int) *sessionSweepJob {
	t.Helper()
	jobIface, err := NewSessionSweepJob(SessionSweepJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         sweepTxRunner{},
		Repository: repo,
		Outbox:     emitter,
		TTL:        4 * time.Hour,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*sessionSweepJob)
	require.True(t, ok)
	return job
}

func TestSessionSweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-5 * time.Hour)
	sessions := []models.TerminalSession{idleSession(stale), idleSession(stale)}
	repo := &fakeSweepRepo{idle: [][]models.TerminalSession{sessions}}
	emitter := &fakeSweepEmitter{}
	job := newSweepJob(t, repo, emitter, 500)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, repo.expired, 1)
	assert.Equal(t, []uuid.UUID{sessions[0].ID, sessions[1].ID}, repo.expired[0])

	require.Len(t, emitter.events, 2)
	for i, event := range emitter.events {
		assert.Equal(t, enums.EventSessionExpired, event.EventType)
		assert.Equal(t, enums.AggregateTerminalSession, event.AggregateType)
		assert.Equal(t, sessions[i].ID, event.AggregateID)
		assert.Equal(t, now, event.OccurredAt)
	}
}

func TestSessionSweepEmptyBatchIsSuccess(t *testing.T) {
	repo := &fakeSweepRepo{}
	emitter := &fakeSweepEmitter{}
	job := newSweepJob(t, repo, emitter, 500)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, repo.expired)
	assert.Empty(t, emitter.events)
}

func TestSessionSweepDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-6 * time.Hour)
	first := []models.TerminalSession{idleSession(stale), idleSession(stale)}
	second := []models.TerminalSession{idleSession(stale)}
	repo := &fakeSweepRepo{idle: [][]models.TerminalSession{first, second}}
	emitter := &fakeSweepEmitter{}
	job := newSweepJob(t, repo, emitter, 2)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, repo.expired, 2)
	assert.Len(t, repo.expired[0], 2)
	assert.Len(t, repo.expired[1], 1)
	assert.Len(t, emitter.events, 3)
}

func TestSessionSweepStopsOnBatchFailure(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-6 * time.Hour)
	repo := &fakeSweepRepo{
		idle:      [][]models.TerminalSession{{idleSession(stale)}},
		expireErr: errors.New("deadlock"),
	}
	job := newSweepJob(t, repo, &fakeSweepEmitter{}, 500)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expire sessions")
	assert.Equal(t, 1, repo.findCalls)
}

func TestSessionSweepPropagatesFindError(t *testing.T) {
	repo := &fakeSweepRepo{findErr: errors.New("connection reset")}
	job := newSweepJob(t, repo, &fakeSweepEmitter{}, 500)

	require.Error(t, job.Run(context.Background()))
}
