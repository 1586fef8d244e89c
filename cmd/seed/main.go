package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"canteen/internal/auth"
	"canteen/internal/config"
	"canteen/internal/db"
	"canteen/internal/model"
	"canteen/internal/nutrition"
	"canteen/internal/repository"
	"canteen/internal/service"
	"canteen/internal/storage"
)

// SeedFoodData is one catalog entry in the seed file.
type SeedFoodData struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Price       string          `json:"price"`
	Description string          `json:"description"`
	IsHealthy   *bool           `json:"is_healthy"`
	Nutrition   nutrition.Facts `json:"nutrition"`
}

func main() {
	foodsPath := flag.String("foods", "", "optional JSON file with catalog items to create or update by name")
	flag.Parse()

	if err := run(*foodsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(foodsPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting seed script")

	gormDB, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	ctx := context.Background()
	store := repository.NewStore(gormDB)

	// Sessions and revocation are unused here; the seed only touches accounts.
	authService := service.NewAuthService(store.Users(), auth.NewSessionManager(cfg.SecretKey, cfg.SessionTTL), auth.NewRedisSessionStore(nil), logger)
	created, err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info().Str("username", cfg.Admin.Username).Msg("created new admin user")
	} else {
		logger.Info().Str("username", cfg.Admin.Username).Msg("updated existing user to admin")
	}

	if foodsPath == "" {
		return nil
	}

	foods, err := readFoods(foodsPath)
	if err != nil {
		return err
	}
	seeded, updated, err := seedFoods(ctx, store.Foods(), foods, logger)
	if err != nil {
		return fmt.Errorf("failed to seed food items: %w", err)
	}

	logger.Info().
		Int("created", seeded).
		Int("updated", updated).
		Msg("seed completed")
	return nil
}

func readFoods(path string) ([]SeedFoodData, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var foods []SeedFoodData
	if err := json.Unmarshal(body, &foods); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return foods, nil
}

// seedFoods creates catalog items, or updates the existing item with the same name.
func seedFoods(ctx context.Context, repo repository.FoodRepository, foods []SeedFoodData, logger zerolog.Logger) (seeded int, updated int, err error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list food items: %w", err)
	}
	byName := make(map[string]*model.FoodItem, len(existing))
	for i := range existing {
		byName[strings.ToLower(existing[i].Name)] = &existing[i]
	}

	for _, data := range foods {
		name := strings.TrimSpace(data.Name)
		if name == "" {
			logger.Warn().Msg("skipping seed entry without a name")
			continue
		}

		price, err := service.ParsePrice(data.Price)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidPrice) {
				return seeded, updated, err
			}
			logger.Warn().Str("name", name).Str("price", data.Price).Msg("invalid price, using 0")
			price = decimal.Zero
		}

		item, ok := byName[strings.ToLower(name)]
		if !ok {
			item = &model.FoodItem{}
		}
		item.Name = name
		item.Image = storage.Ref(data.Image)
		item.Price = price
		item.Description = data.Description
		item.Nutrition = nutrition.Encode(data.Nutrition)
		item.IsHealthy = data.IsHealthy == nil || *data.IsHealthy

		if ok {
			if err := repo.Update(ctx, item); err != nil {
				return seeded, updated, fmt.Errorf("error updating %q: %w", name, err)
			}
			updated++
			continue
		}
		if err := repo.Create(ctx, item); err != nil {
			return seeded, updated, fmt.Errorf("error creating %q: %w", name, err)
		}
		byName[strings.ToLower(name)] = item
		seeded++
	}
	return seeded, updated, nil
}
