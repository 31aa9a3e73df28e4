package redis

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestFormatKeys(t *testing.T) {
	assert.Equal(t, "mediagrab:ratelimit:user:42", FormatKey(RateLimitKeyPrefix, "user:42"))
	assert.Equal(t, "mediagrab:ratelimit:api:media_resolve:resolve:203.0.113.9", formatRateLimitKey("api:media_resolve", "resolve:203.0.113.9"))
}

func TestTokenMemberIsUniquePerRequest(t *testing.T) {
	now := time.Unix(1700000000, 123456789)

	first, second := tokenMember(now), tokenMember(now)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "1700000000123456789-"))
	assert.True(t, strings.HasPrefix(second, "1700000000123456789-"))
}

func TestMediaRateLimits(t *testing.T) {
	limits := MediaRateLimits(10, 30, time.Minute)

	require.Len(t, limits, 2)
	assert.Equal(t, RateLimit{Key: "api:media_resolve", MaxRequests: 10, Window: time.Minute}, limits["resolve"])
	assert.Equal(t, RateLimit{Key: "api:media_search", MaxRequests: 30, Window: time.Minute}, limits["search"])
}

func TestRateLimiterUnreachableRedis(t *testing.T) {
	client := NewClientFrom(redis.NewClient(&redis.Options{
		Addr:        closedAddr(t),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}), utils.NewNopLogger())
	defer client.Close()

	limiter := NewRateLimiter(client, RateLimit{Key: "api:media_resolve", MaxRequests: 5, Window: time.Minute})

	result, err := limiter.Allow(context.Background(), "resolve:192.0.2.1")
	assert.Error(t, err)
	assert.False(t, result.Allowed)
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	cfg := config.CreateDefaultConfig()
	cfg.Redis.Address = closedAddr(t)
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	cfg.Redis.MaxRetries = -1

	client, err := NewClient(context.Background(), cfg, utils.NewNopLogger())
	assert.Nil(t, client)
	assert.Error(t, err)
}
