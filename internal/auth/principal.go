package auth

import (
	"github.com/labstack/echo/v4"

	"canteen/internal/model"
)

const principalKey = "principal"

// SetPrincipal attaches the logged-in user to the request.
func SetPrincipal(c echo.Context, user *model.User) {
	c.Set(principalKey, user)
}

// PrincipalFromContext returns the logged-in user, or nil for anonymous requests.
func PrincipalFromContext(c echo.Context) *model.User {
	user, _ := c.Get(principalKey).(*model.User)
	return user
}
