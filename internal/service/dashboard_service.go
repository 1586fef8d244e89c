package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "canteen/internal/errors"
	"canteen/internal/model"
	"canteen/internal/repository"
)

// Dashboard is a user's consumption history with its aggregates.
type Dashboard struct {
	Logs          []model.FoodLog `json:"logs"`
	TotalCalories int             `json:"total_calories"`
	HealthyCount  int             `json:"healthy_count"`
	JunkCount     int             `json:"junk_count"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
}

// DashboardService records consumption and summarizes it per user.
type DashboardService interface {
	LogConsumption(ctx context.Context, principal *model.User, foodID uint) (*model.FoodLog, error)
	GetDashboard(ctx context.Context, principal *model.User) (*Dashboard, error)
}

type dashboardService struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(store repository.Store, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		store:  store,
		logger: logger.With().Str("component", "dashboard").Logger(),
		now:    time.Now,
	}
}

// LogConsumption records that the principal consumed a food item today. The
// item's current health flag is copied onto the log.
func (s *dashboardService) LogConsumption(ctx context.Context, principal *model.User, foodID uint) (*model.FoodLog, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var entry *model.FoodLog
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		food, err := tx.Foods().FindByID(ctx, foodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrFoodNotFound
			}
			return fmt.Errorf("find food item %d: %w", foodID, err)
		}

		entry = &model.FoodLog{
			UserID:    principal.ID,
			FoodID:    food.ID,
			Date:      model.Day(s.now()),
			IsHealthy: food.IsHealthy,
		}
		if err := tx.Logs().Create(ctx, entry); err != nil {
			return fmt.Errorf("create food log: %w", err)
		}
		entry.Food = food
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("user_id", principal.ID).
		Uint("food_id", foodID).
		Bool("is_healthy", entry.IsHealthy).
		Msg("consumption logged")
	return entry, nil
}

// GetDashboard returns the principal's logs, newest date first, with totals.
func (s *dashboardService) GetDashboard(ctx context.Context, principal *model.User) (*Dashboard, error) {
	if principal == nil {
		return nil, apperrors.ErrUnauthorized
	}

	logs, err := s.store.Logs().ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("list food logs: %w", err)
	}

	foods, err := s.resolveFoods(ctx, logs)
	if err != nil {
		return nil, err
	}

	return s.summarize(logs, foods), nil
}

func (s *dashboardService) resolveFoods(ctx context.Context, logs []model.FoodLog) (map[uint]*model.FoodItem, error) {
	seen := make(map[uint]struct{}, len(logs))
	ids := make([]uint, 0, len(logs))
	for _, l := range logs {
		if _, ok := seen[l.FoodID]; ok {
			continue
		}
		seen[l.FoodID] = struct{}{}
		ids = append(ids, l.FoodID)
	}

	items, err := s.store.Foods().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load logged food items: %w", err)
	}

	foods := make(map[uint]*model.FoodItem, len(items))
	for i := range items {
		foods[items[i].ID] = &items[i]
	}
	return foods, nil
}

// summarize counts every log as healthy or junk by its own flag. Calories and
// spend only come from logs whose food item still resolves.
func (s *dashboardService) summarize(logs []model.FoodLog, foods map[uint]*model.FoodItem) *Dashboard {
	d := &Dashboard{
		Logs:       logs,
		TotalSpent: decimal.Zero,
	}
	if d.Logs == nil {
		d.Logs = []model.FoodLog{}
	}

	for i := range d.Logs {
		l := &d.Logs[i]
		if l.IsHealthy {
			d.HealthyCount++
		} else {
			d.JunkCount++
		}

		food, ok := foods[l.FoodID]
		if !ok {
			s.logger.Warn().Uint("log_id", l.ID).Uint("food_id", l.FoodID).Msg("logged food item missing")
			continue
		}
		l.Food = food

		calories, err := food.Facts().CalorieCount()
		if err != nil {
			s.logger.Debug().Err(err).Uint("food_id", food.ID).Msg("calories not counted")
		} else {
			d.TotalCalories += calories
		}
		d.TotalSpent = d.TotalSpent.Add(food.Price)
	}
	return d
}
