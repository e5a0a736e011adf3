package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a per-tenant sliding window rate limiter backed by Redis.
// A Lua script atomically expires old entries, checks the count, and
// records the new request, so concurrent requests cannot sneak past the
// limit between a read and a write.
type RateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	limit  int
	window time.Duration
	script *redis.Script
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, math.floor(window / 1000) + 1)
    return 1
else
    return 0
end
`)

// NewRateLimiter allows limit requests per tenant per window.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limit:  limit,
		window: window,
		script: slidingWindowScript,
	}
}

// Allow reports whether the tenant is within its rate limit. Fails open:
// if Redis is unreachable the request proceeds.
func (rl *RateLimiter) Allow(ctx context.Context, tenantID string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}

	key := fmt.Sprintf("rl:%s", tenantID)
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%10000)

	result, err := rl.script.Run(ctx, rl.client, []string{key},
		now, rl.window.Milliseconds(), rl.limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "tenant_id", tenantID)
		return true
	}

	return result == 1
}

// rateLimit rejects requests over the tenant's limit with 429. A nil
// limiter disables limiting.
func rateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl != nil {
				if tenantID := tenantFrom(r); tenantID != "" && !rl.Allow(r.Context(), tenantID) {
					respondError(w, http.StatusTooManyRequests, "rate limited")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
