package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/auth"
	"canteen/internal/service"
	"canteen/internal/view"
)

// DashboardHandler serves consumption logging and the personal dashboard.
type DashboardHandler struct {
	dashboard service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboard service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Dashboard renders the principal's history and totals.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	d, err := h.dashboard.GetDashboard(c.Request().Context(), auth.PrincipalFromContext(c))
	if err != nil {
		return pageError(c, err)
	}
	return c.Render(http.StatusOK, view.PageDashboard, echo.Map{"dashboard": d})
}

// LogFood records that the principal ate the item and returns to the dashboard.
func (h *DashboardHandler) LogFood(c echo.Context) error {
	id, err := foodID(c)
	if err != nil {
		return pageError(c, err)
	}

	entry, err := h.dashboard.LogConsumption(c.Request().Context(), auth.PrincipalFromContext(c), id)
	if err != nil {
		return pageError(c, err)
	}

	view.SetFlash(c, view.FlashSuccess, fmt.Sprintf("Logged %s as consumed!", entry.Food.Name))
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}
