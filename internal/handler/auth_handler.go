package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"canteen/internal/auth"
	apperrors "canteen/internal/errors"
	"canteen/internal/service"
	"canteen/internal/view"
)

// AuthHandler handles the login, registration and logout pages.
type AuthHandler struct {
	authService service.AuthService
	sessions    *auth.SessionManager
	logger      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *auth.SessionManager, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// RegisterRequest represents the registration form.
type RegisterRequest struct {
	Username string `form:"username" validate:"required,max=80"`
	Email    string `form:"email" validate:"required,email,max=120"`
	Password string `form:"password" validate:"required"`
}

// LoginRequest represents the login form.
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageLogin, nil)
}

// Login checks the credentials and starts a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlash(c, view.FlashError, "Invalid username or password!")
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	session, _, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.logger.Warn().Str("username", req.Username).Msg("login failed")
			view.SetFlash(c, view.FlashError, "Invalid username or password!")
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return err
	}

	c.SetCookie(h.sessions.Cookie(session))
	view.SetFlash(c, view.FlashSuccess, "Logged in successfully!")
	return c.Redirect(http.StatusSeeOther, "/")
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageRegister, nil)
}

// Register creates an account and sends the user to the login page.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlash(c, view.FlashError, "Please enter a username, a valid email and a password.")
		return c.Redirect(http.StatusSeeOther, "/register")
	}

	_, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		view.SetFlash(c, view.FlashError, "Username or email already exists!")
		return c.Redirect(http.StatusSeeOther, "/register")
	case errors.Is(err, apperrors.ErrInvalidInput):
		view.SetFlash(c, view.FlashError, "Please enter a username, a valid email and a password.")
		return c.Redirect(http.StatusSeeOther, "/register")
	default:
		return err
	}

	view.SetFlash(c, view.FlashSuccess, "Registration successful! Please log in.")
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout revokes the session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		if err := h.authService.Logout(c.Request().Context(), cookie.Value); err != nil {
			h.logger.Error().Err(err).Msg("session revocation failed")
		}
	}

	c.SetCookie(h.sessions.ExpiredCookie())
	view.SetFlash(c, view.FlashSuccess, "Logged out successfully!")
	return c.Redirect(http.StatusSeeOther, "/")
}
