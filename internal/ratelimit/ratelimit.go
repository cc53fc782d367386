// Package ratelimit implements a fixed-window request limiter backed by a
// shared Redis counter, so the limit holds across process instances.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/config"
)

// Limiter counts requests per key in Redis with a TTL window.
type Limiter struct {
	redis  *redis.Client
	prefix string

	requestsPerWindow int
	window            time.Duration
}

// NewLimiter creates a Redis-backed limiter.
func NewLimiter(client *redis.Client, cfg *config.RateLimitConfig) *Limiter {
	return &Limiter{
		redis:             client,
		prefix:            "ratelimit",
		requestsPerWindow: cfg.RequestsPerWindow,
		window:            cfg.WindowDuration,
	}
}

// Allow increments the counter for key and reports whether the request is
// within the window limit. The INCR and EXPIRE run in one pipeline so the
// key always carries a TTL.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: %w", err)
	}

	return incr.Val() <= int64(l.requestsPerWindow), nil
}

// Remaining returns the number of requests left in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return l.requestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := l.requestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// TTL returns the time until the window resets for key.
func (l *Limiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return l.redis.TTL(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Result()
}

// Reset clears the counter for a key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}

// Middleware limits requests per caller. Authenticated callers are keyed by
// the subject set upstream in the request context; anonymous callers by
// client IP. Redis failure fails open so an outage never takes the API down
// with it.
func (l *Limiter) Middleware(keyFromContext func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := ""
			if keyFromContext != nil {
				key = keyFromContext(r)
			}
			if key == "" {
				key = "ip:" + clientIP(r)
			}

			allowed, err := l.Allow(ctx, key)
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			remaining, rerr := l.Remaining(ctx, key)
			if rerr == nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.requestsPerWindow))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}

			if !allowed {
				retryAfter := l.window.Seconds()
				if ttl, terr := l.TTL(ctx, key); terr == nil && ttl > 0 {
					retryAfter = ttl.Seconds()
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
