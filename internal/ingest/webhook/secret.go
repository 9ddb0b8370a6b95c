package webhook

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"chat-ingest/internal/httputil"
	"chat-ingest/internal/platform/config"

	"github.com/gin-gonic/gin"
)

var errSecretNotConfigured = errors.New("webhook secret is not configured")

// RequireSecret 比對共享密鑰 header；未設定密鑰時回應 500.
func RequireSecret(cfg config.WebhookConfig) gin.HandlerFunc {
	secret := []byte(cfg.Secret)
	header := cfg.SignatureHeader

	return func(c *gin.Context) {
		if len(secret) == 0 {
			httputil.SafeError(c, http.StatusInternalServerError, httputil.ErrorCodeNotConfigured, errSecretNotConfigured, "服務器內部錯誤，請稍後再試")
			return
		}

		got := c.GetHeader(header)
		if got == "" {
			httputil.Unauthorized(c, httputil.ErrorCodeMissingSecret, "缺少簽章 header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), secret) != 1 {
			httputil.Unauthorized(c, httputil.ErrorCodeInvalidSecret, "簽章不正確")
			return
		}

		c.Next()
	}
}
