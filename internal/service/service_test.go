package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"canteen/internal/model"
	"canteen/internal/nutrition"
	"canteen/internal/repository"
	"canteen/internal/storage"
)

type testEnv struct {
	db        *gorm.DB
	store     repository.Store
	uploadDir string
	catalog   CatalogService
	dashboard *dashboardService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.FoodItem{}, &model.FoodLog{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir, "/static", zerolog.Nop())
	require.NoError(t, err)

	return &testEnv{
		db:        db,
		store:     store,
		uploadDir: dir,
		catalog:   NewCatalogService(store, images, nil, zerolog.Nop()),
		dashboard: NewDashboardService(store, zerolog.Nop()).(*dashboardService),
	}
}

func (e *testEnv) createUser(t *testing.T, username string, admin bool) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsAdmin:      admin,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) createFood(t *testing.T, name, calories, price string, healthy bool) *model.FoodItem {
	t.Helper()
	item := &model.FoodItem{
		Name:      name,
		Nutrition: nutrition.Encode(nutrition.Facts{Calories: calories}),
		Price:     decimal.RequireFromString(price),
		IsHealthy: healthy,
	}
	require.NoError(t, e.store.Foods().Create(context.Background(), item))
	return item
}

func ptr[T any](v T) *T {
	return &v
}
