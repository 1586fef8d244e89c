package repository

import (
	"context"

	"gorm.io/gorm"

	"canteen/internal/model"
)

// FoodLogRepository defines consumption log persistence operations.
// Logs are append-only: there is no update or delete.
type FoodLogRepository interface {
	Create(ctx context.Context, log *model.FoodLog) error
	ListByUser(ctx context.Context, userID uint) ([]model.FoodLog, error)
}

type foodLogRepository struct {
	db *gorm.DB
}

// NewFoodLogRepository creates a new food log repository.
func NewFoodLogRepository(db *gorm.DB) FoodLogRepository {
	return &foodLogRepository{db: db}
}

// Create creates a new food log entry.
func (r *foodLogRepository) Create(ctx context.Context, log *model.FoodLog) error {
	return r.db.WithContext(ctx).Omit("User", "Food").Create(log).Error
}

// ListByUser returns the user's logs, most recent date first. The order of logs
// sharing a date is whatever the database returns.
func (r *foodLogRepository) ListByUser(ctx context.Context, userID uint) ([]model.FoodLog, error) {
	var logs []model.FoodLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
