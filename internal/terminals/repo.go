package terminals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localbites/kiosk-backend/pkg/db/models"
	"github.com/localbites/kiosk-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a session registry repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error) {
	var session models.TerminalSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByDevice locks the active row for the (store, device) slot so two
// concurrent opens serialize on it.
func (r *repository) FindActiveByDevice(ctx context.Context, storeID uuid.UUID, deviceNumber int) (*models.TerminalSession, error) {
	var session models.TerminalSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ? AND device_number = ? AND status = ?", storeID, deviceNumber, enums.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) UpdateSession(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TerminalSession{}).
		Where("id = ?", id).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// TouchActive bumps the liveness columns only while the session is still
// active; zero rows means the session is gone or retired.
func (r *repository) TouchActive(ctx context.Context, id uuid.UUID, lastActiveAt, expiresAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TerminalSession{}).
		Where("id = ? AND status = ?", id, enums.SessionStatusActive).
		Updates(map[string]any{
			"last_active_at": lastActiveAt,
			"expires_at":     expiresAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) FindActiveExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.TerminalSession, error) {
	var sessions []models.TerminalSession
	query := r.db.WithContext(ctx).
		Where("status = ? AND last_active_at < ?", enums.SessionStatusActive, cutoff).
		Order("last_active_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ExpireByIDs retires the batch in one statement. The status guard keeps the
// sweep from clobbering a session closed between select and update.
func (r *repository) ExpireByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.TerminalSession{}).
		Where("id IN ? AND status = ?", ids, enums.SessionStatusActive).
		Updates(map[string]any{
			"status":        enums.SessionStatusExpired,
			"closed_reason": "idle_timeout",
		})
	return res.RowsAffected, res.Error
}
