// Package middleware contains HTTP middleware for the API.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// RequestObserver receives per-request measurements.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
	IncHTTPRequestsInProgress(method string)
	DecHTTPRequestsInProgress(method string)
}

// LoggerMiddleware handles request logging for the API.
type LoggerMiddleware struct {
	logger   *utils.Logger
	observer RequestObserver
}

// NewLoggerMiddleware creates a new logger middleware. observer may be nil.
func NewLoggerMiddleware(logger *utils.Logger, observer RequestObserver) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger:   logger.Named("http"),
		observer: observer,
	}
}

// Logger is a middleware that logs HTTP requests.
func (m *LoggerMiddleware) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer that captures the status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default status code
		}

		if m.observer != nil {
			m.observer.IncHTTPRequestsInProgress(r.Method)
			defer m.observer.DecHTTPRequestsInProgress(r.Method)
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		if m.observer != nil {
			m.observer.ObserveHTTPRequest(r.Method, routePattern(r), rw.statusCode, duration)
		}

		m.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", duration,
			"ip", utils.GetRequestIP(r),
			"requestId", chimiddleware.GetReqID(r.Context()),
			"userAgent", r.UserAgent(),
		)
	})
}

// routePattern returns the matched chi route so metrics labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// responseWriter is a wrapper around http.ResponseWriter that captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and calls the underlying ResponseWriter's WriteHeader.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
