package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// RateLimit meters requests per route and client IP.
// A failing limiter lets the request through.
func RateLimit(limiter service.RateLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.FullPath() + "|" + c.ClientIP()

		decision, err := limiter.Allow(ctx, key)
		if err != nil {
			log.Warn(ctx, "Rate limit check failed", logger.Error(err), logger.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if !decision.Allowed {
			retry := int64(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retry, 10))
			traceID, _ := ctx.Value(constants.ContextKeyTraceID).(string)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.ErrorResponse(errors.ErrRateLimited("too many requests"), traceID))
			return
		}
		c.Next()
	}
}
