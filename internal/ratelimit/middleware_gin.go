package ratelimit

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/docrender/internal/observability/metrics"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

// ClientLimiter decides whether a client may issue another request.
type ClientLimiter interface {
	AllowClient(ctx context.Context, key string) (*RateLimitResult, error)
}

// GinMiddleware rejects requests from clients whose bucket is empty. Limiter
// errors fail open so a Redis outage never blocks document generation.
func GinMiddleware(limiter ClientLimiter, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		endpoint := c.FullPath()
		ctx := c.Request.Context()

		res, err := limiter.AllowClient(ctx, c.ClientIP())
		if err != nil {
			log.Warn("rate limit check failed", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}

		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
		}
		if !res.Allowed {
			m.RecordRateLimitDenied(ctx, endpoint, "exhausted")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			_ = c.Error(ErrRateLimited)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many render requests",
				},
			})
			return
		}
		m.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}
