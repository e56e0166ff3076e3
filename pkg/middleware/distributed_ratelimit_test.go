package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestDistributedRateLimiter_AllowsWithinLimit(t *testing.T) {
	client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, "test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "client")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := rl.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if allowed {
		t.Error("request over the limit should be denied")
	}
}

func TestDistributedRateLimiter_Remaining(t *testing.T) {
	client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	}, "test")
	ctx := context.Background()

	remaining, err := rl.Remaining(ctx, "client")
	if err != nil {
		t.Fatalf("Remaining returned error: %v", err)
	}
	if remaining != 5 {
		t.Errorf("Remaining = %d, want 5 before any request", remaining)
	}

	rl.Allow(ctx, "client")
	rl.Allow(ctx, "client")

	remaining, err = rl.Remaining(ctx, "client")
	if err != nil {
		t.Fatalf("Remaining returned error: %v", err)
	}
	if remaining != 3 {
		t.Errorf("Remaining = %d, want 3 after two requests", remaining)
	}
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")
	ctx := context.Background()

	rl.Allow(ctx, "client")
	if allowed, _ := rl.Allow(ctx, "client"); allowed {
		t.Fatal("second request should be denied before reset")
	}

	if err := rl.Reset(ctx, "client"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if allowed, _ := rl.Allow(ctx, "client"); !allowed {
		t.Error("request after reset should be allowed")
	}
}

func TestDistributedRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewDistributedRateLimiter(client, DefaultRateLimitConfig(), "test")

	mr.Close()

	allowed, err := rl.Allow(context.Background(), "client")
	if err == nil {
		t.Fatal("expected error from a dead Redis")
	}
	if !allowed {
		t.Error("Allow must fail open when Redis is unreachable")
	}
}

func TestDistributedRateLimitMiddleware_Denies(t *testing.T) {
	client := newTestRedis(t)
	m := NewDistributedRateLimitMiddleware(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	r := httptest.NewRequest("POST", "/tokens", nil)
	r.RemoteAddr = "198.51.100.7:4242"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

func TestDistributedRateLimitMiddleware_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	m := NewDistributedRateLimitMiddleware(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	mr.Close()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/tokens", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected request to pass through on Redis outage, got %d", w.Code)
	}
}
