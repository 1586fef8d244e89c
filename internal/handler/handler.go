package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "canteen/internal/errors"
	"canteen/internal/model"
)

// pageError answers a failed HTML request. Forbidden is plain text, an anonymous
// principal is sent to the login page, and everything else becomes an echo error.
func pageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return c.String(http.StatusForbidden, apperrors.ErrForbidden.Error())
	case errors.Is(err, apperrors.ErrUnauthorized):
		return c.Redirect(http.StatusSeeOther, "/login")
	case errors.Is(err, apperrors.ErrFoodNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}

func adminOnly(principal *model.User) error {
	if principal == nil {
		return apperrors.ErrUnauthorized
	}
	if !principal.IsAdmin {
		return apperrors.ErrForbidden
	}
	return nil
}

// apiError maps err to the JSON error body.
func apiError(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// foodID parses the :id path parameter. Malformed ids are unknown items.
func foodID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrFoodNotFound
	}
	return uint(id), nil
}

// formValue returns the last submitted value of key, or nil when the field was absent.
func formValue(c echo.Context, key string) *string {
	values, err := c.FormParams()
	if err != nil {
		return nil
	}
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[len(v)-1]
}

// formFlag interprets a checkbox-like field. Unrecognised values count as unset.
func formFlag(c echo.Context, key string) *bool {
	raw := formValue(c, key)
	if raw == nil {
		return nil
	}
	var v bool
	switch strings.ToLower(strings.TrimSpace(*raw)) {
	case "on", "true", "1", "yes":
		v = true
	case "off", "false", "0", "no", "":
		v = false
	default:
		return nil
	}
	return &v
}
