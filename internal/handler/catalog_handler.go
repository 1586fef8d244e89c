package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/auth"
	"canteen/internal/nutrition"
	"canteen/internal/service"
	"canteen/internal/view"
)

// CatalogHandler serves the menu pages and the admin food forms.
type CatalogHandler struct {
	catalog service.CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Index renders the whole catalog.
func (h *CatalogHandler) Index(c echo.Context) error {
	items, err := h.catalog.ListCatalog(c.Request().Context())
	if err != nil {
		return pageError(c, err)
	}
	return c.Render(http.StatusOK, view.PageIndex, echo.Map{"items": items})
}

// FoodDetail renders one food item.
func (h *CatalogHandler) FoodDetail(c echo.Context) error {
	id, err := foodID(c)
	if err != nil {
		return pageError(c, err)
	}
	item, err := h.catalog.GetItem(c.Request().Context(), id)
	if err != nil {
		return pageError(c, err)
	}
	return c.Render(http.StatusOK, view.PageFoodDetail, echo.Map{"item": item})
}

// AddFoodForm renders the empty add form for admins.
func (h *CatalogHandler) AddFoodForm(c echo.Context) error {
	if err := adminOnly(auth.PrincipalFromContext(c)); err != nil {
		return pageError(c, err)
	}
	return c.Render(http.StatusOK, view.PageAddFood, nil)
}

// AddFood creates a food item from the multipart add form.
func (h *CatalogHandler) AddFood(c echo.Context) error {
	principal := auth.PrincipalFromContext(c)
	if err := adminOnly(principal); err != nil {
		return pageError(c, err)
	}

	healthy := false
	if flag := formFlag(c, "is_healthy"); flag != nil {
		healthy = *flag
	}
	in := service.FoodInput{
		Name:        formValue(c, "name"),
		Description: formValue(c, "description"),
		Price:       formValue(c, "price"),
		IsHealthy:   &healthy,
		Facts:       factsFromForm(c),
		ImageName:   formValue(c, "image"),
	}

	upload, closeUpload, err := uploadFromForm(c)
	if err != nil {
		return err
	}
	defer closeUpload()
	in.Upload = upload

	if _, err := h.catalog.AddFood(c.Request().Context(), principal, in); err != nil {
		return pageError(c, err)
	}

	view.SetFlash(c, view.FlashSuccess, "Food item added!")
	return c.Redirect(http.StatusSeeOther, "/")
}

// EditFoodForm renders the edit form with the stored nutrition text.
func (h *CatalogHandler) EditFoodForm(c echo.Context) error {
	principal := auth.PrincipalFromContext(c)
	id, err := foodID(c)
	if err != nil && principal != nil && principal.IsAdmin {
		return pageError(c, err)
	}

	item, err := h.catalog.GetForEdit(c.Request().Context(), principal, id)
	if err != nil {
		return pageError(c, err)
	}
	return c.Render(http.StatusOK, view.PageEditFood, echo.Map{
		"item":      item,
		"nutrition": service.NutritionText(item),
	})
}

// EditFood applies the submitted edit form.
func (h *CatalogHandler) EditFood(c echo.Context) error {
	principal := auth.PrincipalFromContext(c)
	id, err := foodID(c)
	if err != nil && principal != nil && principal.IsAdmin {
		return pageError(c, err)
	}

	in := service.FoodInput{
		Name:          formValue(c, "name"),
		Description:   formValue(c, "description"),
		Price:         formValue(c, "price"),
		IsHealthy:     formFlag(c, "is_healthy"),
		NutritionText: formValue(c, "nutrition"),
		ImageName:     formValue(c, "image"),
	}

	upload, closeUpload, err := uploadFromForm(c)
	if err != nil {
		return err
	}
	defer closeUpload()
	in.Upload = upload

	item, err := h.catalog.EditFood(c.Request().Context(), principal, id, in)
	if err != nil {
		return pageError(c, err)
	}

	view.SetFlash(c, view.FlashSuccess, "Food item updated!")
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/food/%d", item.ID))
}

func factsFromForm(c echo.Context) *nutrition.Facts {
	value := func(key string) string {
		if v := formValue(c, key); v != nil {
			return *v
		}
		return ""
	}
	return &nutrition.Facts{
		Calories: value("calories"),
		Protein:  value("protein"),
		Fat:      value("fat"),
		Carbs:    value("carbs"),
	}
}

// uploadFromForm opens the image_file upload, if one was sent. The returned
// func closes it.
func uploadFromForm(c echo.Context) (*service.ImageUpload, func(), error) {
	fh, err := c.FormFile("image_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, echo.NewHTTPError(http.StatusBadRequest, "invalid upload").SetInternal(err)
	}
	if fh.Filename == "" {
		return nil, func() {}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("open upload: %w", err)
	}
	return &service.ImageUpload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}
