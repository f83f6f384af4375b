package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/localbites/kiosk-backend/pkg/db/models"
)

// Repository exposes persistence helpers for terminal alerts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, alert *models.TerminalAlert) error
	ListPending(ctx context.Context, sessionID uuid.UUID) ([]models.TerminalAlert, error)
	Ack(ctx context.Context, sessionID, alertID uuid.UUID, now time.Time) (AckResult, error)
}

// AckResult distinguishes "acked now" from "already acked" from "not found".
type AckResult struct {
	Updated bool
	Found   bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, alert *models.TerminalAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repositoryImpl) ListPending(ctx context.Context, sessionID uuid.UUID) ([]models.TerminalAlert, error) {
	var alerts []models.TerminalAlert
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND acked_at IS NULL", sessionID).
		Order("delivered_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repositoryImpl) Ack(ctx context.Context, sessionID, alertID uuid.UUID, now time.Time) (AckResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TerminalAlert{}).
		Where("id = ? AND session_id = ? AND acked_at IS NULL", alertID, sessionID).
		UpdateColumn("acked_at", now)
	if result.Error != nil {
		return AckResult{}, result.Error
	}

	ack := AckResult{Updated: result.RowsAffected > 0}
	if ack.Updated {
		ack.Found = true
		return ack, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TerminalAlert{}).
		Where("id = ? AND session_id = ?", alertID, sessionID).
		Count(&count).Error; err != nil {
		return AckResult{}, err
	}
	ack.Found = count > 0
	return ack, nil
}
