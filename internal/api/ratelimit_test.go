package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, limit, window, testLogger())
}

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := testLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !rl.Allow(ctx, "t1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow(ctx, "t1") {
		t.Error("request over the limit must be rejected")
	}
}

func TestRateLimiter_PerTenantBuckets(t *testing.T) {
	rl := testLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if !rl.Allow(ctx, "acme") {
		t.Fatal("first acme request should be allowed")
	}
	if rl.Allow(ctx, "acme") {
		t.Error("second acme request must be rejected")
	}
	if !rl.Allow(ctx, "globex") {
		t.Error("another tenant must not be affected by acme's limit")
	}
}

func TestRateLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rl := NewRateLimiter(client, 1, time.Minute, testLogger())

	mr.Close()

	if !rl.Allow(context.Background(), "t1") {
		t.Error("limiter must fail open when Redis is unreachable")
	}
}

func TestRateLimitMiddleware_Rejects(t *testing.T) {
	srv := newTestServerWithLimiter(t, testLimiter(t, 1, time.Minute))

	get := func() int {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/workitems/", nil)
		req.Header.Set("X-Tenant-Id", "acme")
		req.Header.Set("X-Tenant-Key", "good-key")
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get(); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	if code := get(); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}
}
