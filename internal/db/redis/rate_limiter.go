// Package redis provides Redis connectivity for shared rate limiting.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"norelock.dev/mediagrab/backend/internal/utils"
)

const (
	// RateLimitKeyPrefix is the prefix for rate limit keys
	RateLimitKeyPrefix = "ratelimit"
)

// RateLimit defines a rate limit constraint
type RateLimit struct {
	// Key is the identifier for this rate limit
	Key string

	// MaxRequests is the maximum number of requests allowed in the time window
	MaxRequests int

	// Window is the time window for rate limiting
	Window time.Duration
}

// RateLimiter implements a sliding window rate limit on a sorted set per client.
// It is shared by every instance pointed at the same Redis.
type RateLimiter struct {
	client *Client
	limit  RateLimit
	logger *utils.Logger
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter enforcing limit
func NewRateLimiter(client *Client, limit RateLimit) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		logger: client.Logger().Named("rate_limiter"),
		now:    time.Now,
	}
}

// Allow checks if a request from identifier is allowed and records it when it is
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) (utils.LimitResult, error) {
	rateLimitKey := formatRateLimitKey(rl.limit.Key, identifier)

	now := rl.now()
	windowStart := now.Add(-rl.limit.Window)

	pipe := rl.client.Pipeline()

	// Remove tokens older than the window
	pipe.ZRemRangeByScore(ctx, rateLimitKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))

	// Count tokens in the current window
	countCmd := pipe.ZCard(ctx, rateLimitKey)

	// Get the oldest token score
	oldestCmd := pipe.ZRangeWithScores(ctx, rateLimitKey, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		rl.logger.Error("Failed to execute rate limit pipeline", err, "key", rateLimitKey)
		return utils.LimitResult{}, err
	}

	count, err := countCmd.Result()
	if err != nil && err != redis.Nil {
		return utils.LimitResult{}, err
	}

	result := utils.LimitResult{Limit: rl.limit.MaxRequests}

	if count >= int64(rl.limit.MaxRequests) {
		result.RetryAfter = rl.limit.Window
		if oldest, err := oldestCmd.Result(); err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(0, int64(oldest[0].Score))
			result.RetryAfter = oldestTime.Add(rl.limit.Window).Sub(now)
		}
		return result, nil
	}

	// Record this request and let the key expire once the window has passed
	write := rl.client.TxPipeline()
	write.ZAdd(ctx, rateLimitKey, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: tokenMember(now),
	})
	write.Expire(ctx, rateLimitKey, rl.limit.Window*2)
	if _, err := write.Exec(ctx); err != nil {
		// The request is still allowed, it just is not counted
		rl.logger.Error("Failed to record rate limit token", err, "key", rateLimitKey)
	}

	result.Allowed = true
	result.Remaining = max(rl.limit.MaxRequests-int(count)-1, 0)
	return result, nil
}

// Reset resets the rate limit for an identifier
func (rl *RateLimiter) Reset(ctx context.Context, identifier string) error {
	rateLimitKey := formatRateLimitKey(rl.limit.Key, identifier)

	if err := rl.client.Del(ctx, rateLimitKey); err != nil {
		rl.logger.Error("Failed to reset rate limit", err, "key", rateLimitKey)
		return err
	}

	rl.logger.Debug("Reset rate limit", "key", rateLimitKey)
	return nil
}

// tokenMember returns a sorted set member for a request recorded at now.
// The random suffix keeps requests from different instances in the same
// nanosecond apart.
func tokenMember(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
}

// formatRateLimitKey formats a key for rate limiting
func formatRateLimitKey(key, identifier string) string {
	return FormatKey(RateLimitKeyPrefix, fmt.Sprintf("%s:%s", key, identifier))
}

// MediaRateLimits returns the resolve and search limits for the API
func MediaRateLimits(resolveRequests, searchRequests int, window time.Duration) map[string]RateLimit {
	return map[string]RateLimit{
		"resolve": {
			Key:         "api:media_resolve",
			MaxRequests: resolveRequests,
			Window:      window,
		},
		"search": {
			Key:         "api:media_search",
			MaxRequests: searchRequests,
			Window:      window,
		},
	}
}
