// Package api provides the HTTP API for the application.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"norelock.dev/mediagrab/backend/internal/api/handlers"
	appMiddleware "norelock.dev/mediagrab/backend/internal/api/middleware"
	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/services/system"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// Route scopes used as rate limit keys.
const (
	ScopeResolve = "resolve"
	ScopeSearch  = "search"
)

// Router is the main HTTP router for the API.
type Router struct {
	*chi.Mux
	logger *utils.Logger
}

// NewRouter creates a new API router.
// metrics may be nil, and limiters may omit a scope to leave it unlimited.
func NewRouter(
	mediaService handlers.MediaService,
	healthService *system.HealthService,
	metrics *system.MetricsService,
	limiters map[string]appMiddleware.Limiter,
	cfg *config.Config,
	version string,
	logger *utils.Logger,
) *Router {
	r := chi.NewRouter()
	apiLogger := logger.Named("api")

	var observer appMiddleware.RequestObserver
	var onLimited func(string)
	if metrics != nil {
		observer = metrics
		onLimited = metrics.IncRateLimited
	}

	// Create middleware
	recoveryMiddleware := appMiddleware.NewRecoveryMiddleware(apiLogger)
	loggerMiddleware := appMiddleware.NewLoggerMiddleware(apiLogger, observer)
	corsMiddleware := appMiddleware.NewCORSMiddleware(appMiddleware.CORSConfigWithOrigins(cfg.Server.AllowedOrigins), apiLogger)

	// Create handlers
	mediaHandler := handlers.NewMediaHandler(mediaService, apiLogger)
	healthHandler := handlers.NewHealthHandler(apiLogger, healthService, cfg, version)

	// Apply global middleware
	r.Use(recoveryMiddleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggerMiddleware.Logger)
	r.Use(corsMiddleware.CORS)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/health", healthHandler.Check)
	r.Get("/health/details", healthHandler.DetailedCheck)

	if metrics != nil && cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// Media routes
	r.Route("/media", func(r chi.Router) {
		r.With(limit(limiters, ScopeResolve, onLimited, apiLogger)...).Get("/resolve", mediaHandler.Resolve)
		r.With(limit(limiters, ScopeSearch, onLimited, apiLogger)...).Get("/search", mediaHandler.Search)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Route not found")
	})

	return &Router{
		Mux:    r,
		logger: apiLogger,
	}
}

// limit returns the rate limit middleware for scope, or nothing when the scope has no limiter.
func limit(limiters map[string]appMiddleware.Limiter, scope string, onLimited func(string), logger *utils.Logger) []func(http.Handler) http.Handler {
	limiter, ok := limiters[scope]
	if !ok || limiter == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{
		appMiddleware.NewRateLimitMiddleware(limiter, scope, onLimited, logger).Limit,
	}
}
