package server

import (
	"chat-ingest/internal/ingest/webhook"
	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/health"
	"chat-ingest/internal/platform/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// Router 設定路由：webhook、健康檢查與 Prometheus 指標.
func Router(cfg *config.Config, processor webhook.Processor, healthHandler *health.Handler) *gin.Engine {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// 請求 ID 最優先，後續日誌才帶得到 trace_id
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.AccessLogMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(securityHeadersMiddleware())

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhook.Register(r, webhook.NewHandler(processor, cfg.Webhook), cfg.Webhook)

	return r
}
