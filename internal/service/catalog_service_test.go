package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "canteen/internal/errors"
	"canteen/internal/model"
	"canteen/internal/nutrition"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "50", want: "50"},
		{raw: " 12.5 ", want: "12.5"},
		{raw: "9.999", want: "10"},
		{raw: "0", want: "0"},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestCatalogService_AddFood(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	item, err := env.catalog.AddFood(ctx, admin, FoodInput{
		Name:        ptr("  Veg Sandwich "),
		Description: ptr("Fresh veggies"),
		Price:       ptr("50"),
		IsHealthy:   ptr(false),
		Facts:       &nutrition.Facts{Calories: " 250 kcal", Protein: "8g"},
		Upload:      &ImageUpload{Filename: "../veg sandwich.jpg", Body: strings.NewReader("jpeg")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Veg Sandwich", item.Name)
	assert.Equal(t, "uploads/veg_sandwich.jpg", item.Image)
	assert.False(t, item.IsHealthy)

	data, err := os.ReadFile(filepath.Join(env.uploadDir, "veg_sandwich.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	got, err := env.catalog.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "250 kcal", got.Facts.Calories)
	assert.Equal(t, "8g", got.Facts.Protein)
	assert.Empty(t, got.Facts.Fat)
	assert.True(t, decimal.NewFromInt(50).Equal(got.Price))
	assert.False(t, got.IsHealthy)
}

func TestCatalogService_AddFoodDefaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	item, err := env.catalog.AddFood(ctx, admin, FoodInput{
		Name:      ptr("Samosa"),
		Price:     ptr("not a number"),
		ImageName: ptr("uploads/samosa.jpg"),
	})
	require.NoError(t, err)
	assert.True(t, item.Price.IsZero())
	assert.True(t, item.IsHealthy)
	assert.Equal(t, "uploads/samosa.jpg", item.Image)

	facts := item.Facts()
	assert.True(t, facts.IsEmpty())
}

func TestCatalogService_AddFoodRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createUser(t, "bob", false)

	_, err := env.catalog.AddFood(ctx, user, FoodInput{Name: ptr("Chips")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.catalog.AddFood(ctx, nil, FoodInput{Name: ptr("Chips")})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	items, err := env.catalog.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalogService_AddFoodRemovesUploadOnFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)
	require.NoError(t, env.db.Migrator().DropTable(&model.FoodItem{}))

	_, err := env.catalog.AddFood(ctx, admin, FoodInput{
		Name:   ptr("Ghost"),
		Upload: &ImageUpload{Filename: "ghost.png", Body: strings.NewReader("png")},
	})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(env.uploadDir, "ghost.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCatalogService_FailedAddKeepsImageOfAnotherItem(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	first, err := env.catalog.AddFood(ctx, admin, FoodInput{
		Name:   ptr("Idli"),
		Upload: &ImageUpload{Filename: "pic.png", Body: strings.NewReader("idli")},
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/pic.png", first.Image)

	require.NoError(t, env.db.Migrator().DropTable(&model.FoodItem{}))
	_, err = env.catalog.AddFood(ctx, admin, FoodInput{
		Name:   ptr("Vada"),
		Upload: &ImageUpload{Filename: "pic.png", Body: strings.NewReader("vada")},
	})
	require.Error(t, err)

	assert.FileExists(t, filepath.Join(env.uploadDir, "pic.png"))
}

func TestCatalogService_UnusableUploadFallsBackToTypedName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	item, err := env.catalog.AddFood(ctx, admin, FoodInput{
		Name:      ptr("Roll"),
		Upload:    &ImageUpload{Filename: "../", Body: strings.NewReader("x")},
		ImageName: ptr("roll.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/roll.jpg", item.Image)
}

func TestCatalogService_EditFood(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)
	food := env.createFood(t, "Paneer Roll", "300 kcal", "40", true)

	edited, err := env.catalog.EditFood(ctx, admin, food.ID, FoodInput{
		Name:          ptr("Paneer Wrap"),
		Price:         ptr("oops"),
		IsHealthy:     ptr(false),
		NutritionText: ptr(`{"Calories": "320 kcal", "Protein": "12g"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Paneer Wrap", edited.Name)
	assert.True(t, decimal.NewFromInt(40).Equal(edited.Price), "unparsable price keeps the old value")
	assert.False(t, edited.IsHealthy)

	got, err := env.catalog.GetItem(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "320 kcal", got.Facts.Calories)
	assert.Equal(t, "12g", got.Facts.Protein)
	assert.False(t, got.IsHealthy)
}

func TestCatalogService_EditFoodKeepsInvalidNutritionText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "not json", text: "calories: lots"},
		{name: "extra closing brace", text: `{"Calories":"1"}}`},
		{name: "extra closing bracket", text: `{"Calories":"1"}]`},
	}

	for _, tt := range tests {
		text := tt.text
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			admin := env.createUser(t, "admin", true)
			food := env.createFood(t, "Veg Sandwich", "250 kcal", "50", true)

			_, err := env.catalog.EditFood(ctx, admin, food.ID, FoodInput{
				NutritionText: ptr(text),
			})
			require.NoError(t, err)

			stored, err := env.catalog.GetForEdit(ctx, admin, food.ID)
			require.NoError(t, err)
			assert.Equal(t, text, stored.Nutrition)
			assert.Equal(t, text, NutritionText(stored))
			assert.True(t, stored.Facts().IsEmpty())

			got, err := env.catalog.GetItem(ctx, food.ID)
			require.NoError(t, err)
			assert.True(t, got.Facts.IsEmpty())
		})
	}
}

func TestCatalogService_EditFoodErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)
	user := env.createUser(t, "bob", false)
	food := env.createFood(t, "Chips", "500 kcal", "20", false)

	_, err := env.catalog.EditFood(ctx, admin, food.ID+99, FoodInput{Name: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrFoodNotFound)

	_, err = env.catalog.EditFood(ctx, user, food.ID, FoodInput{Name: ptr("Healthy Chips"), IsHealthy: ptr(true)})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.catalog.EditFood(ctx, user, food.ID+99, FoodInput{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "authorization is checked before existence")

	_, err = env.catalog.GetForEdit(ctx, user, food.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	unchanged, err := env.store.Foods().FindByID(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chips", unchanged.Name)
	assert.False(t, unchanged.IsHealthy)
}

func TestCatalogService_ListCatalogOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createFood(t, "B", "1", "1", true)
	env.createFood(t, "A", "2", "2", false)

	items, err := env.catalog.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Name)
	assert.Equal(t, "A", items[1].Name)
	assert.Equal(t, "2", items[1].Facts.Calories)
}

func TestNutritionText(t *testing.T) {
	item := &model.FoodItem{Nutrition: nutrition.Encode(nutrition.Facts{Calories: "100"})}
	text := NutritionText(item)
	assert.Contains(t, text, "\n")
	facts, err := nutrition.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "100", facts.Calories)
}
