package httputil

import (
	"fmt"
	"net/http"
	"strings"

	"chat-ingest/internal/platform/logger"
	"chat-ingest/internal/platform/middleware"

	"github.com/gin-gonic/gin"
)

// SafeError 安全的錯誤響應（不洩露內部信息）
func SafeError(c *gin.Context, statusCode, code int, err error, userMessage string) {
	requestID := middleware.GetRequestID(c)

	logger.Error(c.Request.Context(), fmt.Sprintf("API Error: %v", err),
		logger.WithDetails(map[string]interface{}{
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     statusCode,
		}))

	message := userMessage
	if shouldShowError(err) {
		message = err.Error()
	}

	ErrorWithCode(c, statusCode, code, message)
}

// ErrorWithCode 以統一格式回應錯誤並中止後續 handler.
func ErrorWithCode(c *gin.Context, statusCode, code int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"ok":         false,
		"error":      message,
		"code":       code,
		"request_id": middleware.GetRequestID(c),
	})
}

// shouldShowError 判斷是否可以向呼叫端顯示錯誤詳情
func shouldShowError(err error) bool {
	if err == nil {
		return false
	}

	// 不應顯示的錯誤關鍵字（可能洩露敏感信息）
	dangerousKeywords := []string{
		"mongo",
		"database",
		"connection",
		"password",
		"secret",
		"credential",
		"amqp",
		"internal",
		"stack",
		"panic",
	}

	lowerMsg := strings.ToLower(err.Error())
	for _, keyword := range dangerousKeywords {
		if strings.Contains(lowerMsg, keyword) {
			return false
		}
	}

	return true
}

// InternalServerError 內部服務器錯誤
func InternalServerError(c *gin.Context, err error) {
	SafeError(c, http.StatusInternalServerError, ErrorCodeProcessingFailed, err, "服務器內部錯誤，請稍後再試")
}

// BadRequest 錯誤的請求
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, http.StatusBadRequest, ErrorCodeInvalidPayload, message)
}

// PayloadTooLarge 請求內容超過上限
func PayloadTooLarge(c *gin.Context, limit int64) {
	ErrorWithCode(c, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
		fmt.Sprintf("請求內容超過上限 (%d bytes)", limit))
}

// Unauthorized 未授權
func Unauthorized(c *gin.Context, code int, message string) {
	if message == "" {
		message = "未授權訪問"
	}
	ErrorWithCode(c, http.StatusUnauthorized, code, message)
}
