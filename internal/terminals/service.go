package terminals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/pkg/auth"
	"github.com/localbites/kiosk-backend/pkg/config"
	dbpkg "github.com/localbites/kiosk-backend/pkg/db"
	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/outbox/payloads"
)

// CloseReasonTakeover is recorded on sessions displaced by a takeover open.
const CloseReasonTakeover = "takeover"

var timeNow = time.Now

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OpenInput carries the device binding request.
type OpenInput struct {
	StoreID      uuid.UUID
	DeviceNumber int
	Takeover     bool
}

// OpenResult returns the new session plus the signed terminal token.
type OpenResult struct {
	Session  *models.TerminalSession
	Token    string
	Takeover bool
}

// Service defines session registry operations.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*OpenResult, error)
	Heartbeat(ctx context.Context, sessionID uuid.UUID) (*models.TerminalSession, error)
	Close(ctx context.Context, sessionID uuid.UUID, reason string) error
	IsActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
	Touch(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	jwtCfg     config.JWTConfig
	sessionTTL time.Duration
}

// NewService wires session registry dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, jwtCfg config.JWTConfig, sessionsCfg config.SessionsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("terminals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if sessionsCfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     publisher,
		jwtCfg:     jwtCfg,
		sessionTTL: sessionsCfg.TTL,
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*OpenResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.DeviceNumber <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device number must be positive")
	}

	now := timeNow().UTC()
	var (
		session  *models.TerminalSession
		takeover bool
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActiveByDevice(ctx, input.StoreID, input.DeviceNumber)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active session")
		}
		if existing != nil {
			if !input.Takeover {
				return pkgerrors.New(pkgerrors.CodeConflict, "device already bound to an active session")
			}
			if err := s.closeLocked(ctx, tx, repo, existing, CloseReasonTakeover); err != nil {
				return err
			}
			takeover = true
		}

		created, err := repo.Create(ctx, &models.TerminalSession{
			StoreID:      input.StoreID,
			DeviceNumber: input.DeviceNumber,
			Status:       enums.SessionStatusActive,
			LastActiveAt: now,
			ExpiresAt:    now.Add(s.sessionTTL),
		})
		if err != nil {
			// Lost the race with a concurrent open on the same slot.
			if dbpkg.IsUniqueViolation(err, "ux_terminal_sessions_active_device") {
				return pkgerrors.New(pkgerrors.CodeConflict, "device already bound to an active session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
		}
		session = created

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionOpened,
			AggregateType: enums.AggregateTerminalSession,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         actorFor(created),
			Data: payloads.SessionOpenedEvent{
				SessionID:    created.ID,
				StoreID:      created.StoreID,
				DeviceNumber: created.DeviceNumber,
				Takeover:     takeover,
				ExpiresAt:    created.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	token, err := auth.MintTerminalToken(s.jwtCfg, now, auth.TerminalTokenPayload{
		SessionID:    session.ID,
		StoreID:      session.StoreID,
		DeviceNumber: session.DeviceNumber,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint terminal token")
	}

	return &OpenResult{Session: session, Token: token, Takeover: takeover}, nil
}

func (s *service) Heartbeat(ctx context.Context, sessionID uuid.UUID) (*models.TerminalSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	now := timeNow().UTC()
	if session.Status != enums.SessionStatusActive || !session.ExpiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is no longer active")
	}

	lastActive := now
	expires := now.Add(s.sessionTTL)
	rows, err := s.repo.TouchActive(ctx, session.ID, lastActive, expires)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh session")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is no longer active")
	}

	session.LastActiveAt = lastActive
	session.ExpiresAt = expires
	return session, nil
}

// Close retires the session. Closing an already-retired session is a no-op so
// the terminal can retry safely.
func (s *service) Close(ctx context.Context, sessionID uuid.UUID, reason string) error {
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		session, err := repo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if session.Status != enums.SessionStatusActive {
			return nil
		}
		return s.closeLocked(ctx, tx, repo, session, reason)
	})
}

func (s *service) IsActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if sessionID == uuid.Nil {
		return false, nil
	}
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session.Status == enums.SessionStatusActive && session.ExpiresAt.After(timeNow().UTC()), nil
}

// Touch refreshes liveness inside the caller's transaction, used by checkout
// so a sale counts as terminal activity.
func (s *service) Touch(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	now := timeNow().UTC()
	rows, err := repo.TouchActive(ctx, sessionID, now, now.Add(s.sessionTTL))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh session")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session is no longer active")
	}
	return nil
}

func (s *service) closeLocked(ctx context.Context, tx *gorm.DB, repo Repository, session *models.TerminalSession, reason string) error {
	updates := map[string]any{
		"status": enums.SessionStatusDisconnected,
	}
	if reason != "" {
		updates["closed_reason"] = reason
	}
	if _, err := repo.UpdateSession(ctx, session.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close session")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSessionClosed,
		AggregateType: enums.AggregateTerminalSession,
		AggregateID:   session.ID,
		Version:       1,
		Actor:         actorFor(session),
		Data: payloads.SessionClosedEvent{
			SessionID:    session.ID,
			StoreID:      session.StoreID,
			DeviceNumber: session.DeviceNumber,
			Reason:       reason,
		},
	})
}

func actorFor(session *models.TerminalSession) *outbox.ActorRef {
	store := session.StoreID
	return &outbox.ActorRef{
		SessionID:    session.ID,
		StoreID:      &store,
		DeviceNumber: session.DeviceNumber,
	}
}
