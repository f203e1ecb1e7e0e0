package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "nfc-wallet/internal/adapter/storage/redis"
	"nfc-wallet/pkg/apperror"
	"nfc-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitStore counts requests per key in a fixed window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"transfers":   {Limit: 30, Window: time.Minute},
		"payments":    {Limit: 60, Window: time.Minute},
		"cards":       {Limit: 10, Window: time.Minute},
		"card_verify": {Limit: 5, Window: time.Minute},
		"merchant":    {Limit: 10, Window: time.Hour},
		"acceptance":  {Limit: 120, Window: time.Minute},
		"read":        {Limit: 120, Window: time.Minute},
		"dev_token":   {Limit: 10, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store failures let the request through.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by owner once authenticated, else by IP.
func extractIdentifier(c *gin.Context) string {
	if owner, ok := OwnerID(c); ok {
		return owner.String()
	}
	return c.ClientIP()
}
