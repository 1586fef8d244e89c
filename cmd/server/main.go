package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "canteen/docs" // swagger docs

	"canteen/internal/auth"
	"canteen/internal/cache"
	"canteen/internal/config"
	"canteen/internal/db"
	"canteen/internal/handler"
	"canteen/internal/repository"
	"canteen/internal/router"
	"canteen/internal/service"
	"canteen/internal/storage"
	"canteen/internal/view"
)

// @title Campus Canteen API
// @version 1.0
// @description Menu browsing and consumption tracking for the campus canteen.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name canteen_session
// @description Session cookie set by POST /login.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting canteen server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormDB, err := db.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	if cfg.ResetDB {
		logger.Warn().Msg("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, continuing without cache")
	}

	images, err := newImageStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Initialize repositories
	store := repository.NewStore(gormDB)

	// Initialize auth components
	sessions := auth.NewSessionManager(cfg.SecretKey, cfg.SessionTTL)
	revoked := auth.NewRedisSessionStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(store.Users(), sessions, revoked, logger)
	catalogService := service.NewCatalogService(store, images, cacheClient, logger)
	dashboardService := service.NewDashboardService(store, logger)

	renderer, err := view.NewRenderer(view.ImageURL(images.URL))
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	e := router.NewServer(renderer)
	router.Register(e, cfg, logger, sessions, authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessions, logger),
		Catalog:   handler.NewCatalogHandler(catalogService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		API:       handler.NewAPIHandler(catalogService, dashboardService),
	})

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", addr).
			Str("swagger", swaggerURL(cfg)).
			Msg("HTTP server started")
		serverErrors <- e.Start(addr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := e.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newImageStore prefers S3 when enabled and falls back to the uploads directory.
func newImageStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.ImageStore, error) {
	if cfg.S3.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PublicURL, logger)
		if err == nil {
			logger.Info().Str("bucket", cfg.S3.Bucket).Msg("storing images in S3")
			return s3Store, nil
		}
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 image store, falling back to local uploads directory")
	}

	local, err := storage.NewLocalStore(cfg.UploadDir, "/static", logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("dir", cfg.UploadDir).Msg("storing images on local disk")
	return local, nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = fmt.Sprintf("localhost:%d", cfg.ServerPort)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
