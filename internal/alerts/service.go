package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/localbites/kiosk-backend/pkg/db/models"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
)

var timeNow = time.Now

// Service defines the terminal-facing alert operations.
type Service interface {
	ListPending(ctx context.Context, sessionID uuid.UUID) ([]models.TerminalAlert, error)
	Ack(ctx context.Context, sessionID, alertID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires alert dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "alerts repository required")
	}
	return &service{repo: repo}, nil
}

// ListPending returns undismissed alerts so a reconnecting terminal can
// resume its notification loop.
func (s *service) ListPending(ctx context.Context, sessionID uuid.UUID) ([]models.TerminalAlert, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	alerts, err := s.repo.ListPending(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending alerts")
	}
	return alerts, nil
}

// Ack stops the terminal's sound/vibrate loop. Acking twice succeeds
// silently.
func (s *service) Ack(ctx context.Context, sessionID, alertID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if alertID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}

	result, err := s.repo.Ack(ctx, sessionID, alertID, timeNow().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ack alert")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	return nil
}
