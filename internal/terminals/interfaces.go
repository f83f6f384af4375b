package terminals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/pkg/db/models"
)

// Repository defines persistence operations for the session registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error)
	FindActiveByDevice(ctx context.Context, storeID uuid.UUID, deviceNumber int) (*models.TerminalSession, error)
	UpdateSession(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	TouchActive(ctx context.Context, id uuid.UUID, lastActiveAt, expiresAt time.Time) (int64, error)
	FindActiveExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.TerminalSession, error)
	ExpireByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}
