package middleware

import (
	"context"
	"strconv"
	"time"

	redisStore "ecash-billing-engine/internal/adapter/storage/redis"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"session":  {Limit: 10, Window: time.Minute},
		"wallet":   {Limit: 120, Window: time.Minute},
		"send":     {Limit: 30, Window: time.Minute},
		"invoices": {Limit: 60, Window: time.Minute},
		"chat":     {Limit: 60, Window: time.Minute},
		"events":   {Limit: 10, Window: time.Minute},
	}
}

// RateLimitRules applies configured budgets over the defaults. Every group
// shares window; limits only names the groups that differ. Unknown groups
// are ignored.
func RateLimitRules(window time.Duration, limits map[string]int64) map[string]RateLimitRule {
	rules := DefaultRateLimitRules()
	for group, rule := range rules {
		if window > 0 {
			rule.Window = window
		}
		if limit, ok := limits[group]; ok && limit > 0 {
			rule.Limit = limit
		}
		rules[group] = rule
	}
	return rules
}

// RateCounter counts requests per key and window.
type RateCounter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimiter limits one route group. Authenticated callers are counted per
// identity, anonymous ones per client IP. If the counter is unreachable the
// request passes.
func RateLimiter(counter RateCounter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := group + ":" + callerKey(c)
		res, err := counter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
		if res.Allowed {
			c.Next()
			return
		}

		h.Set("Retry-After", strconv.FormatInt(max(res.ResetAt-time.Now().Unix(), 1), 10))
		log.Debug().Str("group", group).Str("caller", key).Msg("rate limited")
		response.Error(c, apperror.ErrRateLimitExceeded())
		c.Abort()
	}
}

func callerKey(c *gin.Context) string {
	if id := c.GetString(CtxIdentity); id != "" {
		return "id:" + id
	}
	return "ip:" + c.ClientIP()
}
