package middleware

import (
	"strconv"
	"time"

	"chat-ingest/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware 記錄 HTTP 請求計數與耗時；以路由模板作為 path 標籤.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
