package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/driver"
	"chat-ingest/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	// 健康狀態常數.
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusWarning   = "warning"
	statusDisabled  = "disabled"
	statusDegraded  = "degraded"

	// 記憶體相關常數.
	memoryMB        = 1024 * 1024
	memoryThreshold = 1024 // 1GB

	// 超時常數.
	dbTimeout = 5 * time.Second
)

// Handler 健康檢查處理器.
type Handler struct {
	pingDB        func(ctx context.Context) error
	queueUp       func() bool
	queueEnabled  bool
	queueFallback bool
}

// Option 設定 Handler.
type Option func(*Handler)

// WithDatabaseCheck 替換資料庫檢查.
func WithDatabaseCheck(fn func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.pingDB = fn
	}
}

// WithQueueCheck 設定佇列是否啟用與連線檢查；fallback 表示佇列啟用但目前以略過模式運作.
func WithQueueCheck(enabled, fallback bool, up func() bool) Option {
	return func(h *Handler) {
		h.queueEnabled = enabled
		h.queueFallback = fallback
		h.queueUp = up
	}
}

// NewHealthHandler 創建新的健康檢查處理器.
func NewHealthHandler(opts ...Option) *Handler {
	h := &Handler{
		pingDB:  driver.PingMongo,
		queueUp: driver.AMQPConnected,
	}
	if cfg := config.Get(); cfg != nil {
		h.queueEnabled = cfg.Queue.Enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck 健康檢查端點.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := statusHealthy
	dbError := ""
	if err := h.checkDatabase(ctx); err != nil {
		dbStatus = statusUnhealthy
		dbError = err.Error()
		logger.Errorf(ctx, "健康檢查 - 資料庫連線失敗: %v", err)
	}

	queueStatus := h.checkQueue()
	systemStatus := h.checkSystemResources()

	response := gin.H{
		"status":    statusHealthy,
		"timestamp": time.Now().Unix(),
		"database": gin.H{
			"status": dbStatus,
			"error":  dbError,
		},
		"queue": gin.H{
			"status":   queueStatus,
			"fallback": h.queueFallback,
		},
		"system": gin.H{
			"status":  systemStatus.Status,
			"details": systemStatus.Details,
			"uptime":  time.Since(startTime).String(),
		},
	}
	if cfg := config.Get(); cfg != nil {
		response["app"] = gin.H{
			"name":    cfg.App.Name,
			"version": cfg.App.Version,
			"env":     config.GetEnv(),
		}
	}

	// 沒有資料庫無法持久化，回傳 503 讓負載平衡器移除此實例
	if dbStatus == statusUnhealthy {
		response["status"] = statusUnhealthy
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	// 佇列異常只影響媒體任務，服務仍可接收 webhook
	if queueStatus == statusUnhealthy || h.queueFallback {
		response["status"] = statusDegraded
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) checkQueue() string {
	if !h.queueEnabled {
		return statusDisabled
	}
	if h.queueUp == nil || !h.queueUp() {
		return statusUnhealthy
	}
	return statusHealthy
}

// SystemStatus 系統狀態.
type SystemStatus struct {
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details"`
}

// checkSystemResources 檢查系統資源.
func (h *Handler) checkSystemResources() SystemStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	details := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc":  fmt.Sprintf("%.2f MB", float64(m.Alloc)/memoryMB),
			"sys":    fmt.Sprintf("%.2f MB", float64(m.Sys)/memoryMB),
			"num_gc": m.NumGC,
		},
	}

	status := statusHealthy
	if m.Sys/memoryMB > memoryThreshold {
		status = statusWarning
		details["memory_warning"] = "Memory usage is high"
	}

	return SystemStatus{
		Status:  status,
		Details: details,
	}
}

// checkDatabase 檢查資料庫連線.
func (h *Handler) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return h.pingDB(ctx)
}

// 記錄服務啟動時間.
var startTime = time.Now()
