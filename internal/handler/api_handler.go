package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/auth"
	"canteen/internal/service"
)

// APIHandler exposes the catalog and dashboard as JSON.
type APIHandler struct {
	catalog   service.CatalogService
	dashboard service.DashboardService
}

// NewAPIHandler creates a new JSON API handler.
func NewAPIHandler(catalog service.CatalogService, dashboard service.DashboardService) *APIHandler {
	return &APIHandler{catalog: catalog, dashboard: dashboard}
}

// ListFoods godoc
// @Summary List the catalog
// @Tags foods
// @Produce json
// @Success 200 {array} service.CatalogItem
// @Failure 500 {object} errors.ErrorResponse
// @Router /foods [get]
func (h *APIHandler) ListFoods(c echo.Context) error {
	items, err := h.catalog.ListCatalog(c.Request().Context())
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetFood godoc
// @Summary Get a food item
// @Tags foods
// @Produce json
// @Param id path int true "Food item ID"
// @Success 200 {object} service.CatalogItem
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /foods/{id} [get]
func (h *APIHandler) GetFood(c echo.Context) error {
	id, err := foodID(c)
	if err != nil {
		return apiError(err)
	}
	item, err := h.catalog.GetItem(c.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// LogFood godoc
// @Summary Log consumption of a food item
// @Tags dashboard
// @Produce json
// @Security SessionCookie
// @Param id path int true "Food item ID"
// @Success 201 {object} model.FoodLog
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /foods/{id}/log [post]
func (h *APIHandler) LogFood(c echo.Context) error {
	principal := auth.PrincipalFromContext(c)
	id, err := foodID(c)
	if err != nil && principal != nil {
		return apiError(err)
	}
	entry, err := h.dashboard.LogConsumption(c.Request().Context(), principal, id)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Dashboard godoc
// @Summary Get the current user's dashboard
// @Tags dashboard
// @Produce json
// @Security SessionCookie
// @Success 200 {object} service.Dashboard
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /dashboard [get]
func (h *APIHandler) Dashboard(c echo.Context) error {
	d, err := h.dashboard.GetDashboard(c.Request().Context(), auth.PrincipalFromContext(c))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, d)
}
