package constants

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 10 << 20 // 10MB
	DefaultRequestTimeout     = 30       // 秒
	ShutdownTimeout           = 30       // 秒
)

// Webhook 相關常數
const (
	DefaultSignatureHeader = "X-Webhook-Secret"
	DefaultCompanyHeader   = "X-Company-Id"
)

// 管線相關常數
const (
	DefaultMaxRawString      = 4096 // 原始快照中單一字串的最大長度
	DefaultQueueTimeout      = 5    // 秒
	MaxDroppedCandidateBytes = 1024 // 丟棄記錄寫入日誌時的截斷長度
)

// 佇列相關常數
const (
	DefaultQueueExchange      = "media"
	DefaultQueueRoutingKey    = "media.attachments.process"
	DefaultQueueRetryAttempts = 5
	DefaultQueueRetryDelayMS  = 500
	DefaultQueuePoolSize      = 8 // 每條連線的 confirm 通道上限
)
