package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"canteen/internal/auth"
	"canteen/internal/config"
	apperrors "canteen/internal/errors"
	"canteen/internal/handler"
	"canteen/internal/service"
)

// Handlers groups the request handlers wired by Register.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Dashboard *handler.DashboardHandler
	API       *handler.APIHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger zerolog.Logger,
	sessions *auth.SessionManager,
	authService service.AuthService,
	h Handlers,
) {
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(sessionMiddleware(sessions))
	e.Use(loadPrincipal(authService, sessions, logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Static("/static/uploads", cfg.UploadDir)
	e.Static("/static", cfg.StaticDir)

	// Public pages
	e.GET("/", h.Catalog.Index)
	e.GET("/food/:id", h.Catalog.FoodDetail)
	e.GET("/login", h.Auth.LoginForm)
	e.POST("/login", h.Auth.Login)
	e.GET("/register", h.Auth.RegisterForm)
	e.POST("/register", h.Auth.Register)

	// Pages that need a session
	loginPage := requireLogin(false)
	e.GET("/dashboard", h.Dashboard.Dashboard, loginPage)
	e.POST("/log_food/:id", h.Dashboard.LogFood, loginPage)
	e.GET("/add_food", h.Catalog.AddFoodForm, loginPage)
	e.POST("/add_food", h.Catalog.AddFood, loginPage)
	e.GET("/edit_food/:id", h.Catalog.EditFoodForm, loginPage)
	e.POST("/edit_food/:id", h.Catalog.EditFood, loginPage)
	e.GET("/logout", h.Auth.Logout, loginPage)

	api := e.Group("/api")
	api.GET("/foods", h.API.ListFoods)
	api.GET("/foods/:id", h.API.GetFood)

	// Secured routes (require a session)
	loginAPI := requireLogin(true)
	api.GET("/dashboard", h.API.Dashboard, loginAPI)
	api.POST("/foods/:id/log", h.API.LogFood, loginAPI)
}

// sessionMiddleware validates the session cookie when present. Requests
// without a valid token continue anonymously.
func sessionMiddleware(sessions *auth.SessionManager) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return sessions.Parse(token)
		},
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})
}

// loadPrincipal resolves validated claims to the current user.
func loadPrincipal(authService service.AuthService, sessions *auth.SessionManager, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.Claims)
			if !ok {
				return next(c)
			}

			user, err := authService.Authenticate(c.Request().Context(), claims)
			switch {
			case err == nil:
				auth.SetPrincipal(c, user)
			case errors.Is(err, apperrors.ErrUnauthorized):
				c.SetCookie(sessions.ExpiredCookie())
			default:
				logger.Error().Err(err).Msg("failed to load session user")
			}
			return next(c)
		}
	}
}

// requireLogin rejects anonymous requests: pages redirect to the login page,
// the JSON API answers 401.
func requireLogin(api bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if auth.PrincipalFromContext(c) != nil {
				return next(c)
			}
			if api {
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthorized)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return c.Redirect(http.StatusSeeOther, "/login")
		}
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// NewServer creates the echo instance rendering pages with renderer.
func NewServer(renderer echo.Renderer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Server.ReadHeaderTimeout = 10 * time.Second
	return e
}
