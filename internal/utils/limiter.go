// Package utils provides utility functions used throughout the application.
package utils

import (
	"context"
	"sync"
	"time"
)

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	// Allowed indicates whether the request is allowed
	Allowed bool

	// Limit is the maximum number of requests allowed in the window
	Limit int

	// Remaining is the number of requests left in the current window
	Remaining int

	// RetryAfter is how long the client should wait when not allowed
	RetryAfter time.Duration
}

// RateLimiter provides a simple in-memory sliding window rate limiter.
// It is used when Redis is not configured.
type RateLimiter struct {
	// requests maps keys to request timestamps inside the window
	requests map[string][]time.Time

	// window defines the time period for limiting
	window time.Duration

	// limit is the maximum number of requests allowed in the window
	limit int

	mu  sync.Mutex
	now func() time.Time
}

// NewRateLimiter creates a new rate limiter with the specified window and limit.
func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the window.
func (rl *RateLimiter) Allow(_ context.Context, key string) (LimitResult, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.inWindow(key, now)

	result := LimitResult{Limit: rl.limit}
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		result.RetryAfter = valid[0].Add(rl.window).Sub(now)
		return result, nil
	}

	valid = append(valid, now)
	rl.requests[key] = valid
	result.Allowed = true
	result.Remaining = rl.limit - len(valid)
	return result, nil
}

// inWindow returns the timestamps for key newer than the window start, oldest first.
func (rl *RateLimiter) inWindow(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	times := rl.requests[key]
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// CleanupLoop periodically drops expired entries until ctx is done.
// It should be started in a goroutine.
func (rl *RateLimiter) CleanupLoop(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes expired entries from the requests map.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.requests {
		valid := rl.inWindow(key, now)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}
