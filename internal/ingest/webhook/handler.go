// Package webhook 將供應商的 webhook 請求交給 ingest 管線.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"chat-ingest/internal/httputil"
	"chat-ingest/internal/ingest"
	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// Processor 處理一次 webhook 請求.
type Processor interface {
	Process(ctx context.Context, req ingest.Request) (*ingest.Summary, error)
}

// Handler webhook 處理器.
type Handler struct {
	processor     Processor
	companyHeader string
	maxBodySize   int64
}

// NewHandler 創建 webhook 處理器.
func NewHandler(p Processor, cfg config.WebhookConfig) *Handler {
	return &Handler{
		processor:     p,
		companyHeader: cfg.CompanyHeader,
		maxBodySize:   cfg.MaxBodySize,
	}
}

// Receive 部分候選記錄失敗時仍回應 200，讓供應商不重送整批.
func (h *Handler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.PayloadTooLarge(c, tooLarge.Limit)
			return
		}
		httputil.BadRequest(c, "無法讀取請求內容")
		return
	}

	companyHint := ""
	if h.companyHeader != "" {
		companyHint = c.GetHeader(h.companyHeader)
	}

	summary, err := h.processor.Process(ctx, ingest.Request{Body: body, CompanyHint: companyHint})
	if errors.Is(err, ingest.ErrInvalidPayload) {
		logger.Warning(ctx, "webhook body 不是合法 JSON",
			logger.WithCompanyID(companyHint),
			logger.WithAction("webhook"),
			logger.WithDetails(map[string]interface{}{"size": len(body)}))
		httputil.BadRequest(c, "invalid JSON payload")
		return
	}
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	failed := 0
	for _, r := range summary.Results {
		if r.Failed() {
			failed++
		}
	}
	logger.Info(ctx, "webhook 處理完成",
		logger.WithCompanyID(companyHint),
		logger.WithAction("webhook"),
		logger.WithDetails(map[string]interface{}{
			"processed": summary.Processed,
			"failed":    failed,
		}))

	c.JSON(http.StatusOK, summary)
}

// Register 在 group 上掛載 webhook 路由.
func Register(r gin.IRouter, h *Handler, cfg config.WebhookConfig) {
	guard := RequireSecret(cfg)
	r.POST("/webhooks/whatsapp", guard, h.Receive)
	r.POST("/webhook", guard, h.Receive)
}
