package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig configures the distributed rate limiter
type RateLimitConfig struct {
	// Default rate limit (requests per window)
	Requests int
	// Default window duration
	Window time.Duration
}

// skipPaths are paths exempt from rate limiting
var skipPaths = []string{
	"/health",
	"/ready",
	"/metrics",
}

// authPaths get their own key space so bursts against login cannot starve
// other endpoints from the same IP
var authPaths = []string{
	"/api/login",
	"/api/register",
	"/api/verify-challenge",
}

// DistributedRateLimit implements Redis-backed rate limiting using a fixed
// window counter. If Redis is unavailable, it fails open (allows the request).
func DistributedRateLimit(redisClient *redis.Client, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, sp := range skipPaths {
			if path == sp {
				c.Next()
				return
			}
		}

		scope := "ip"
		if isAuthPath(path) {
			scope = "auth"
		}

		windowEpoch := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, c.ClientIP(), windowEpoch)

		if redisClient == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		defer cancel()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// Fail open: a rate limiter outage must not block all traffic
			logger.Warn("Rate limit Redis error, failing open",
				zap.Error(err),
				zap.String("key", key))
			c.Next()
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, cfg.Window+time.Second)
		}

		remaining := int64(cfg.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Requests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(cfg.Requests) {
			retryAfter := int64(cfg.Window.Seconds()) - (time.Now().Unix() % int64(cfg.Window.Seconds()))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// isAuthPath checks if the request path matches an auth-sensitive path
func isAuthPath(path string) bool {
	for _, ap := range authPaths {
		if strings.HasPrefix(path, ap) {
			return true
		}
	}
	return false
}
