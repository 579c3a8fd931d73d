package repository

import (
	"context"
	"errors"
	"time"

	"chronicle/internal/models"
	"chronicle/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisitLogRepository defines persistence operations for visit logs.
type VisitLogRepository interface {
	Create(ctx context.Context, log *models.VisitLog) error
	GetByID(ctx context.Context, id uint) (*models.VisitLog, error)
	// Close stamps ended_at on an open log. Closing an already-closed log
	// is a no-op.
	Close(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]models.VisitLog, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.VisitLog, error)
}

type visitLogRepository struct {
	db *gorm.DB
}

// NewVisitLogRepository returns a new VisitLogRepository implementation.
func NewVisitLogRepository(db *gorm.DB) VisitLogRepository {
	return &visitLogRepository{db: db}
}

func (r *visitLogRepository) Create(ctx context.Context, log *models.VisitLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return models.NewInternalError(err)
	}
	observability.VisitLogsOpened.Inc()
	return nil
}

func (r *visitLogRepository) GetByID(ctx context.Context, id uint) (*models.VisitLog, error) {
	var log models.VisitLog
	if err := readDB(r.db).WithContext(ctx).First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("VisitLog", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &log, nil
}

func (r *visitLogRepository) Close(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.VisitLog{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", at)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected > 0 {
		observability.VisitLogsClosed.Inc()
	}
	return nil
}

func (r *visitLogRepository) List(ctx context.Context, limit, offset int) ([]models.VisitLog, error) {
	var logs []models.VisitLog
	if err := readDB(r.db).WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}

func (r *visitLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.VisitLog, error) {
	var logs []models.VisitLog
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}
