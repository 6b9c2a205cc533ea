package middleware

import (
	"context"
	"time"

	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitRule bounds one route group.
type RateLimitRule struct {
	Name   string
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-group limits. The handshake
// callbacks get more headroom than login because the wallet SDK
// retries them.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth":    {Name: "auth", Limit: 10, Window: time.Minute},
		"payment": {Name: "payment", Limit: 120, Window: time.Minute},
		"default": {Name: "default", Limit: 60, Window: time.Minute},
	}
}

// RateLimiter enforces a fixed-window limit per client IP. The store is
// shared (Redis), so the limit holds across instances. A store failure
// lets the request through.
func RateLimiter(store RateLimitStore, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.Name + ":" + c.ClientIP()

		count, err := store.Increment(c.Request.Context(), key, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, allowing request")
			c.Next()
			return
		}

		if count > rule.Limit {
			c.Abort()
			response.Error(c, apperror.ErrRateLimitExceeded())
			return
		}
		c.Next()
	}
}
