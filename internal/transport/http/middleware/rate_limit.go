package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
)

// IdentifierFunc extracts the key used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a counting window with a block for one scope.
type RateLimitRule struct {
	Scope      string
	Limit      int
	Window     time.Duration
	BlockFor   time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces per-scope counting windows at the transport edge.
// Store errors fail open: an unreachable limiter must not take down login.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
}

// RateLimitResponse is the 429 payload. RetryAfter is in seconds and mirrors
// the Retry-After header.
type RateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger}
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// Limit returns a Gin middleware enforcing the provided rule.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		key, ok := rule.Identifier(c)
		if !ok || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		remaining, err := rl.store.BlockedFor(ctx, rule.Scope, key)
		if err != nil {
			rl.logger.Warn("rate limit block check failed", zap.String("scope", rule.Scope), zap.Error(err))
			c.Next()
			return
		}
		if remaining > 0 {
			rl.respondLimited(c, rule, remaining)
			return
		}

		count, err := rl.store.Increment(ctx, rule.Scope, key, rule.Window)
		if err != nil {
			rl.logger.Warn("rate limit increment failed", zap.String("scope", rule.Scope), zap.Error(err))
			c.Next()
			return
		}

		if count > rule.Limit {
			blockFor := rule.BlockFor
			if blockFor <= 0 {
				blockFor = rule.Window
			}
			if err := rl.store.Block(ctx, rule.Scope, key, blockFor); err != nil {
				rl.logger.Warn("rate limit block install failed", zap.String("scope", rule.Scope), zap.Error(err))
			}
			rl.respondLimited(c, rule, blockFor)
			return
		}

		rl.applyHeaders(c, rule, rule.Limit-count, time.Now().Add(rule.Window))
		c.Next()
	}
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, rule RateLimitRule, remaining int, reset time.Time) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
	if remaining < 0 {
		remaining = 0
	}
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func (rl *RateLimiter) respondLimited(c *gin.Context, rule RateLimitRule, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	rl.applyHeaders(c, rule, 0, time.Now().Add(retryAfter))
	c.Writer.Header().Set("Retry-After", strconv.Itoa(seconds))

	c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitResponse{
		Error:      fmt.Sprintf("too many requests, try again in %d seconds", seconds),
		RetryAfter: seconds,
	})
}
