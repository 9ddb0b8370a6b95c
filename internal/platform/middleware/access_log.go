package middleware

import (
	"fmt"
	"strings"
	"time"

	"chat-ingest/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// AccessLogMiddleware 記錄每個請求的結果與耗時.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   GetClientIP(c),
			"size":        c.Writer.Size(),
		}
		msg := fmt.Sprintf("%s %s %d", c.Request.Method, c.Request.URL.Path, status)

		switch {
		case status >= 500:
			logger.Error(c.Request.Context(), msg, logger.WithAction("http"), logger.WithDetails(details))
		case status >= 400:
			logger.Warning(c.Request.Context(), msg, logger.WithAction("http"), logger.WithDetails(details))
		default:
			logger.Debug(c.Request.Context(), msg, logger.WithAction("http"), logger.WithDetails(details))
		}
	}
}

// GetClientIP 獲取客戶端真實 IP
func GetClientIP(c *gin.Context) string {
	// X-Forwarded-For 可能包含多個 IP，取第一個
	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := c.Request.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.ClientIP()
}
