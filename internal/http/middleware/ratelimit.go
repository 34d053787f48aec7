package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/http/response"
	"github.com/yungbote/mumble-backend/internal/observability"
	"github.com/yungbote/mumble-backend/internal/platform/apierr"
	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
	"github.com/yungbote/mumble-backend/internal/platform/ratelimit"
)

// RateLimit throttles per device. It must run after RequireDevice; requests
// without a device are keyed by client IP. A limiter error lets the request
// through.
func RateLimit(limiter ratelimit.Limiter, log *logger.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if dd := ctxutil.GetDeviceData(c.Request.Context()); dd != nil && dd.DeviceID != "" {
			key = "device:" + dd.DeviceID
		}

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", "key", key, "error", err)
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			if metrics := observability.Current(); metrics != nil {
				metrics.IncRateLimited(c.FullPath())
			}
			response.AbortAPIError(c, apierr.RateLimited("Too many requests, please try again later").
				WithDetails(map[string]any{"retryAfter": secs}))
			return
		}
		c.Next()
	}
}
