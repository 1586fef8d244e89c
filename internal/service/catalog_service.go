package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"canteen/internal/cache"
	apperrors "canteen/internal/errors"
	"canteen/internal/model"
	"canteen/internal/nutrition"
	"canteen/internal/repository"
	"canteen/internal/storage"
)

const foodCacheTTL = 5 * time.Minute

// ErrInvalidPrice is returned by ParsePrice for input that is not a non-negative decimal.
var ErrInvalidPrice = errors.New("invalid price")

// CatalogItem is a food item together with its decoded nutrition facts.
type CatalogItem struct {
	model.FoodItem
	Facts nutrition.Facts `json:"nutrition"`
}

// ImageUpload is an image file submitted with a food form.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// FoodInput carries the submitted food form. A nil field was not submitted.
type FoodInput struct {
	Name        *string
	Description *string
	Price       *string
	IsHealthy   *bool
	// Facts sets nutrition from the four individual fields.
	Facts *nutrition.Facts
	// NutritionText sets nutrition from encoded text typed by an admin.
	NutritionText *string
	// ImageName is a manually typed filename inside the uploads directory.
	ImageName *string
	// Upload takes precedence over ImageName.
	Upload *ImageUpload
}

// CatalogService handles browsing and administration of food items.
type CatalogService interface {
	ListCatalog(ctx context.Context) ([]CatalogItem, error)
	GetItem(ctx context.Context, id uint) (*CatalogItem, error)
	GetForEdit(ctx context.Context, principal *model.User, id uint) (*model.FoodItem, error)
	AddFood(ctx context.Context, principal *model.User, in FoodInput) (*model.FoodItem, error)
	EditFood(ctx context.Context, principal *model.User, id uint, in FoodInput) (*model.FoodItem, error)
}

type catalogService struct {
	store  repository.Store
	images storage.ImageStore
	cache  *cache.Client
	logger zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, images storage.ImageStore, cache *cache.Client, logger zerolog.Logger) CatalogService {
	return &catalogService{
		store:  store,
		images: images,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

func (s *catalogService) cacheKey(id uint) string {
	return fmt.Sprintf("food:%d", id)
}

// cachedFood keeps the encoded nutrition, which FoodItem leaves out of its JSON.
type cachedFood struct {
	Item      model.FoodItem `json:"item"`
	Nutrition string         `json:"nutrition"`
}

// ListCatalog returns every food item in insertion order.
func (s *catalogService) ListCatalog(ctx context.Context) ([]CatalogItem, error) {
	items, err := s.store.Foods().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list food items: %w", err)
	}
	out := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		out = append(out, s.decorate(item))
	}
	return out, nil
}

// GetItem retrieves a food item by ID with caching.
func (s *catalogService) GetItem(ctx context.Context, id uint) (*CatalogItem, error) {
	var cached cachedFood
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		cached.Item.Nutrition = cached.Nutrition
		item := s.decorate(cached.Item)
		return &item, nil
	}

	food, err := s.findFood(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), cachedFood{Item: *food, Nutrition: food.Nutrition}, foodCacheTTL)

	item := s.decorate(*food)
	return &item, nil
}

// GetForEdit loads the stored row for the edit form.
func (s *catalogService) GetForEdit(ctx context.Context, principal *model.User, id uint) (*model.FoodItem, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.findFood(ctx, s.store, id)
}

// AddFood creates a food item from a submitted form.
func (s *catalogService) AddFood(ctx context.Context, principal *model.User, in FoodInput) (*model.FoodItem, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	item := &model.FoodItem{
		Name:      trimmed(in.Name),
		IsHealthy: true,
	}
	item.Description = trimmed(in.Description)
	if in.IsHealthy != nil {
		item.IsHealthy = *in.IsHealthy
	}

	price, err := ParsePrice(trimmed(in.Price))
	if err != nil {
		s.logger.Debug().Err(err).Msg("price rejected, defaulting to 0")
		price = decimal.Zero
	}
	item.Price = price

	var facts nutrition.Facts
	if in.Facts != nil {
		facts = trimFacts(*in.Facts)
	}
	item.Nutrition = nutrition.Encode(facts)

	uploaded, err := s.resolveImage(ctx, &item.Image, in)
	if err != nil {
		return nil, err
	}

	if err := s.store.Foods().Create(ctx, item); err != nil {
		s.discardUpload(ctx, uploaded)
		return nil, fmt.Errorf("create food item: %w", err)
	}

	s.logger.Info().
		Uint("food_id", item.ID).
		Str("name", item.Name).
		Uint("admin_id", principal.ID).
		Msg("food item added")
	return item, nil
}

// EditFood applies the submitted fields to an existing food item. Fields that
// were not submitted, and prices that do not parse, leave the stored value alone.
func (s *catalogService) EditFood(ctx context.Context, principal *model.User, id uint, in FoodInput) (*model.FoodItem, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	var (
		item     *model.FoodItem
		uploaded string
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		item, err = s.findFood(ctx, tx, id)
		if err != nil {
			return err
		}

		s.applyEdit(item, in)

		uploaded, err = s.resolveImage(ctx, &item.Image, in)
		if err != nil {
			return err
		}

		if err := tx.Foods().Update(ctx, item); err != nil {
			return fmt.Errorf("update food item %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		s.discardUpload(ctx, uploaded)
		return nil, err
	}

	_ = s.cache.Delete(ctx, s.cacheKey(id))

	s.logger.Info().
		Uint("food_id", item.ID).
		Bool("is_healthy", item.IsHealthy).
		Uint("admin_id", principal.ID).
		Msg("food item updated")
	return item, nil
}

func (s *catalogService) applyEdit(item *model.FoodItem, in FoodInput) {
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		if price, err := ParsePrice(*in.Price); err == nil {
			item.Price = price
		} else {
			s.logger.Debug().Err(err).Uint("food_id", item.ID).Msg("price rejected, keeping previous value")
		}
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsHealthy != nil {
		item.IsHealthy = *in.IsHealthy
	}
	if in.Facts != nil {
		item.Nutrition = nutrition.Encode(trimFacts(*in.Facts))
	}
	if in.NutritionText != nil {
		facts, err := nutrition.Parse(*in.NutritionText)
		if err != nil {
			// Stored verbatim; later reads decode it to empty facts.
			s.logger.Warn().Err(err).Uint("food_id", item.ID).Msg("nutrition text stored without validation")
			item.Nutrition = *in.NutritionText
		} else {
			item.Nutrition = nutrition.Encode(facts)
		}
	}
}

// resolveImage sets *image from the upload or the typed filename. It returns the
// reference of an upload that created a new image so that it can be removed if
// the write fails. Uploads that replaced an existing image are never removed.
func (s *catalogService) resolveImage(ctx context.Context, image *string, in FoodInput) (string, error) {
	if in.Upload != nil && in.Upload.Filename != "" {
		ref, created, err := s.images.Save(ctx, in.Upload.Filename, in.Upload.Body)
		switch {
		case err == nil:
			*image = ref
			if !created {
				return "", nil
			}
			return ref, nil
		case errors.Is(err, storage.ErrInvalidFilename):
			s.logger.Warn().Str("filename", in.Upload.Filename).Msg("upload ignored, filename unusable")
		default:
			return "", fmt.Errorf("store image: %w", err)
		}
	}
	if in.ImageName != nil {
		if ref := storage.Ref(*in.ImageName); ref != "" {
			*image = ref
		}
	}
	return "", nil
}

func (s *catalogService) discardUpload(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.logger.Warn().Err(err).Str("ref", ref).Msg("failed to remove orphaned upload")
	}
}

func (s *catalogService) findFood(ctx context.Context, store repository.Store, id uint) (*model.FoodItem, error) {
	food, err := store.Foods().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFoodNotFound
		}
		return nil, fmt.Errorf("find food item %d: %w", id, err)
	}
	return food, nil
}

func (s *catalogService) decorate(item model.FoodItem) CatalogItem {
	facts, err := nutrition.Parse(item.Nutrition)
	if err != nil {
		s.logger.Debug().Err(err).Uint("food_id", item.ID).Msg("nutrition decoded as empty")
		facts = nutrition.Facts{}
	}
	return CatalogItem{FoodItem: item, Facts: facts}
}

// ParsePrice parses a non-negative decimal price rounded to cents.
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidPrice, raw)
	}
	return price.Round(2), nil
}

// NutritionText returns the item's nutrition for the edit form: indented JSON
// when it decodes, the raw stored text otherwise.
func NutritionText(item *model.FoodItem) string {
	return nutrition.Indent(item.Nutrition)
}

func requireAdmin(principal *model.User) error {
	if principal == nil {
		return apperrors.ErrUnauthorized
	}
	if !principal.IsAdmin {
		return apperrors.ErrForbidden
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimFacts(f nutrition.Facts) nutrition.Facts {
	return nutrition.Facts{
		Calories: strings.TrimSpace(f.Calories),
		Protein:  strings.TrimSpace(f.Protein),
		Fat:      strings.TrimSpace(f.Fat),
		Carbs:    strings.TrimSpace(f.Carbs),
	}
}
