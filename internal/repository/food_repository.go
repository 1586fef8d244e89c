package repository

import (
	"context"

	"gorm.io/gorm"

	"canteen/internal/model"
)

// FoodRepository defines food item persistence operations.
type FoodRepository interface {
	Create(ctx context.Context, item *model.FoodItem) error
	Update(ctx context.Context, item *model.FoodItem) error
	FindByID(ctx context.Context, id uint) (*model.FoodItem, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.FoodItem, error)
	List(ctx context.Context) ([]model.FoodItem, error)
}

type foodRepository struct {
	db *gorm.DB
}

// NewFoodRepository creates a new food item repository.
func NewFoodRepository(db *gorm.DB) FoodRepository {
	return &foodRepository{db: db}
}

// Create creates a new food item.
func (r *foodRepository) Create(ctx context.Context, item *model.FoodItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update writes every column of an existing food item. Concurrent updates of the
// same row are last-writer-wins.
func (r *foodRepository) Update(ctx context.Context, item *model.FoodItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// FindByID finds a food item by ID.
func (r *foodRepository) FindByID(ctx context.Context, id uint) (*model.FoodItem, error) {
	var item model.FoodItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs returns the food items that exist among ids, in no particular order.
func (r *foodRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.FoodItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.FoodItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List returns the whole catalog in insertion order.
func (r *foodRepository) List(ctx context.Context) ([]model.FoodItem, error) {
	var items []model.FoodItem
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
