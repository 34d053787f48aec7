package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/platform/ctxutil"
	"github.com/yungbote/mumble-backend/internal/platform/logger"
)

// RequestLogger writes one line per request. Successful status polls and
// health checks go to debug since clients issue them every few hundred ms.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if dd := ctxutil.GetDeviceData(c.Request.Context()); dd != nil && dd.DeviceID != "" {
			fields = append(fields, "device_id", dd.DeviceID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		case isPollRoute(c.Request.Method, route):
			log.Debug("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

func isPollRoute(method, route string) bool {
	if method != "GET" {
		return false
	}
	return strings.HasSuffix(route, "/status") ||
		strings.Contains(route, "/status/") ||
		strings.HasSuffix(route, "/health")
}
