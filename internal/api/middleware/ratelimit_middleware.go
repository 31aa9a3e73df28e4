// Package middleware contains HTTP middleware for the API.
package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// Limiter decides whether a client key may make another request.
// Both the in-memory and the Redis limiter satisfy it.
type Limiter interface {
	Allow(ctx context.Context, key string) (utils.LimitResult, error)
}

// RateLimitMiddleware rejects clients that exceed a limiter.
type RateLimitMiddleware struct {
	limiter   Limiter
	scope     string
	onLimited func(scope string)
	logger    *utils.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware for one route scope.
// onLimited is called for every rejected request and may be nil.
func NewRateLimitMiddleware(limiter Limiter, scope string, onLimited func(scope string), logger *utils.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:   limiter,
		scope:     scope,
		onLimited: onLimited,
		logger:    logger.Named("rate_limit"),
	}
}

// Limit is a middleware that enforces the limit per client IP.
// Limiter failures let the request through.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.GetRequestIP(r)

		result, err := m.limiter.Allow(r.Context(), m.scope+":"+ip)
		if err != nil {
			m.logger.Error("Rate limiter unavailable", err, "scope", m.scope, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			if m.onLimited != nil {
				m.onLimited(m.scope)
			}
			m.logger.Warn("Rate limit exceeded", "scope", m.scope, "ip", ip)

			utils.RespondWithDomainError(w, &models.ResolutionError{Kind: models.ErrTooManyRequests})
			return
		}

		next.ServeHTTP(w, r)
	})
}
