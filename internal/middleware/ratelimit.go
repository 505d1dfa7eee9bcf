// ratelimit.go enforces per-client rate limits backed by Redis, so limits hold
// across all instances of the service rather than living in per-process
// memory. Fails open: if Redis is unreachable the request proceeds and the
// error is logged: availability over enforcement, mirroring the audit
// engine's failure policy.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute.
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int
}

// DefaultRateLimitConfig returns limits for general authenticated API usage.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 200, BurstSize: 50}
}

// AuthRateLimitConfig returns stricter limits for login endpoints.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10, BurstSize: 5}
}

// RateLimitMiddleware limits requests per client IP using a Redis-backed
// sliding window (GCRA).
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	limiter := redis_rate.NewLimiter(rdb)
	limit := redis_rate.Limit{
		Rate:   cfg.RequestsPerMinute,
		Burst:  cfg.BurstSize,
		Period: time.Minute,
	}

	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), "ratelimit:"+c.ClientIP(), limit)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
