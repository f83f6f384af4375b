package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/outbox/payloads"
)

const defaultSweepBatch = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sweepEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type SessionSweepJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository terminals.Repository
	Outbox     sweepEmitter
	TTL        time.Duration
	BatchSize  int
}

// NewSessionSweepJob retires sessions whose terminals stopped heartbeating.
// Each batch commits the status flip and the session_expired events together,
// so a crash mid-sweep neither loses events nor emits them twice.
func NewSessionSweepJob(params SessionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("terminals repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &sessionSweepJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		ttl:    params.TTL,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type sessionSweepJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   terminals.Repository
	outbox sweepEmitter
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *sessionSweepJob) Name() string { return "session-sweep" }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)

	var swept int
	var errs error
	for {
		sessions, err := j.repo.FindActiveExpiredBefore(ctx, cutoff, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("find idle sessions: %w", err))
		}
		if len(sessions) == 0 {
			break
		}

		if err := j.sweepBatch(ctx, sessions, now); err != nil {
			// The batch rolled back; retrying now would hit the same rows.
			errs = multierr.Append(errs, err)
			break
		}
		swept += len(sessions)

		if len(sessions) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"sessions_swept": swept,
	})
	if errs != nil {
		return errs
	}
	j.logg.Info(logCtx, "session sweep complete")
	return nil
}

func (j *sessionSweepJob) sweepBatch(ctx context.Context, sessions []models.TerminalSession, now time.Time) error {
	ids := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		expired, err := j.repo.WithTx(tx).ExpireByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("expire sessions: %w", err)
		}
		// Fewer rows than ids means some sessions heartbeat between the
		// select and the update; their events are still guarded below.
		_ = expired

		for _, session := range sessions {
			event := outbox.DomainEvent{
				EventType:     enums.EventSessionExpired,
				AggregateType: enums.AggregateTerminalSession,
				AggregateID:   session.ID,
				Version:       1,
				Actor: &outbox.ActorRef{
					SessionID:    session.ID,
					StoreID:      &session.StoreID,
					DeviceNumber: session.DeviceNumber,
				},
				Data: payloads.SessionExpiredEvent{
					SessionID:    session.ID,
					StoreID:      session.StoreID,
					DeviceNumber: session.DeviceNumber,
					LastActiveAt: session.LastActiveAt,
					ExpiredAt:    now,
				},
				OccurredAt: now,
			}
			if err := j.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return fmt.Errorf("emit session_expired for %s: %w", session.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batch_size":  len(sessions),
		"session_ids": ids,
	})
	j.logg.Info(logCtx, "idle sessions expired")
	return nil
}
