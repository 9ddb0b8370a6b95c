package httputil

// API 錯誤代碼常數.
const (
	// 1000-1999: 認證相關錯誤 (401 Unauthorized).
	ErrorCodeMissingSecret = 1001
	ErrorCodeInvalidSecret = 1002

	// 2000-2999: 請求相關錯誤 (400 Bad Request / 413).
	ErrorCodeInvalidPayload  = 2001
	ErrorCodePayloadTooLarge = 2002

	// 5000-5999: 處理相關錯誤 (500 Internal Server Error).
	ErrorCodeProcessingFailed = 5001
	ErrorCodeNotConfigured    = 5002
)
