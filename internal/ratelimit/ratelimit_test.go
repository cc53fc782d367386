package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/config"
)

func newTestLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLimiter(client, &config.RateLimitConfig{
		Enabled:           true,
		RequestsPerWindow: limit,
		WindowDuration:    time.Minute,
	}), mr
}

func TestAllow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:abc")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user:abc")
	require.NoError(t, err)
	assert.False(t, allowed)

	t.Run("keys are independent", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "user:other")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("window expiry restores the budget", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		allowed, err := limiter.Allow(ctx, "user:abc")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRemaining(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "user:abc")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = limiter.Allow(ctx, "user:abc")
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, "user:abc")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)

	require.NoError(t, limiter.Reset(ctx, "user:abc"))

	remaining, err = limiter.Remaining(ctx, "user:abc")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("over-limit requests get 429", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1)
		handler := limiter.Middleware(nil)(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:51234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("custom key function takes precedence", func(t *testing.T) {
		limiter, mr := newTestLimiter(t, 1)
		handler := limiter.Middleware(func(*http.Request) string { return "user:abc" })(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, mr.Exists("ratelimit:user:abc"))
	})

	t.Run("redis outage fails open", func(t *testing.T) {
		limiter, mr := newTestLimiter(t, 1)
		handler := limiter.Middleware(nil)(next)
		mr.Close()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
