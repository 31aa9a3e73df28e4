package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"norelock.dev/mediagrab/backend/internal/api"
	appMiddleware "norelock.dev/mediagrab/backend/internal/api/middleware"
	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/db/redis"
	"norelock.dev/mediagrab/backend/internal/services/media"
	"norelock.dev/mediagrab/backend/internal/services/system"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Create a context that will be canceled on interrupt signal
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := utils.NewLogger(utils.LoggerOptions{
		Development:      cfg.Environment == "development",
		Level:            utils.ParseLevel(cfg.Logging.Level),
		Format:           cfg.Logging.Format,
		OutputPaths:      cfg.Logging.OutputPaths,
		ErrorOutputPaths: cfg.Logging.ErrorOutputPaths,
	})
	defer logger.Sync()

	for _, warning := range config.ValidateAndFixConfig(cfg) {
		logger.Warn("Configuration adjusted", "warning", warning)
	}
	logger.Info("Starting mediagrab server", "environment", cfg.Environment, "version", version)
	logger.Debug("Loaded configuration", "config", config.GetConfigString(cfg))

	metrics := system.NewMetricsService(logger)

	// Initialize Redis client when shared rate limiting is enabled
	var redisClient *redis.Client
	components := map[string]system.Pinger{}
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()
		components["redis"] = redisClient
	}

	// Initialize media services
	mediaService, err := media.NewMediaServiceFromConfig(ctx, cfg, media.NewUpstreamClients(cfg), metrics, logger)
	if err != nil {
		logger.Fatal("Failed to initialize media service", err)
	}

	// Initialize system services
	healthService := system.NewHealthService(components, logger, system.HealthServiceConfig{
		Version:     version,
		Environment: cfg.Environment,
	})
	healthService.Start(ctx)

	limiters := buildLimiters(ctx, cfg, redisClient)

	router := api.NewRouter(mediaService, healthService, metrics, limiters, cfg, version, logger)

	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         apiAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", apiAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", err)
	}

	logger.Info("Server shutdown complete")
}

// buildLimiters returns one limiter per route scope, backed by Redis when a client is given.
func buildLimiters(ctx context.Context, cfg *config.Config, redisClient *redis.Client) map[string]appMiddleware.Limiter {
	limiters := map[string]appMiddleware.Limiter{}
	if !cfg.RateLimit.Enabled {
		return limiters
	}

	// Keys of MediaRateLimits match the router scopes
	limits := redis.MediaRateLimits(cfg.RateLimit.ResolveRequests, cfg.RateLimit.SearchRequests, cfg.RateLimit.Window)
	for scope, limit := range limits {
		if redisClient != nil {
			limiters[scope] = redis.NewRateLimiter(redisClient, limit)
			continue
		}

		local := utils.NewRateLimiter(limit.Window, limit.MaxRequests)
		go local.CleanupLoop(ctx, limit.Window)
		limiters[scope] = local
	}
	return limiters
}
