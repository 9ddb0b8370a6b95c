package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chat-ingest/internal/constants"

	"github.com/spf13/viper"
)

// Config 應用程式配置結構.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// AppConfig 應用程式基本配置.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
}

// ServerConfig 伺服器配置.
type ServerConfig struct {
	Host    string    `mapstructure:"host"`
	Port    string    `mapstructure:"port"`
	Timeout int       `mapstructure:"timeout"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig HTTPS 配置；未啟用時以純 HTTP 監聽（通常在負載平衡器後方）.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DatabaseConfig 資料庫配置.
type DatabaseConfig struct {
	Mongo MongoConfig `mapstructure:"mongo"`
}

// MongoConfig MongoDB 配置.
type MongoConfig struct {
	URL                    string `mapstructure:"url"`
	Database               string `mapstructure:"database"`
	Username               string `mapstructure:"username"`
	Password               string `mapstructure:"password"`
	MaxPoolSize            uint64 `mapstructure:"max_pool_size"`
	MinPoolSize            uint64 `mapstructure:"min_pool_size"`
	MaxConnIdleTime        int    `mapstructure:"max_conn_idle_time"`
	ConnectTimeout         int    `mapstructure:"connect_timeout"`
	ServerSelectionTimeout int    `mapstructure:"server_selection_timeout"`
}

// LogConfig 日誌配置.
type LogConfig struct {
	RotationTimeHours int `mapstructure:"rotation_time_hours"` // 日誌輪轉時間 (小時).
	MaxAgeDays        int `mapstructure:"max_age_days"`        // 日誌保留天數.
	MaxSizeMB         int `mapstructure:"max_size_mb"`         // 單個日誌檔案最大大小 (MB).
}

// WebhookConfig webhook 入口配置.
type WebhookConfig struct {
	Secret          string `mapstructure:"secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	CompanyHeader   string `mapstructure:"company_header"`
	MaxBodySize     int64  `mapstructure:"max_body_size"`
}

// QueueConfig 媒體任務佇列配置.
type QueueConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Exchange      string `mapstructure:"exchange"`
	RoutingKey    string `mapstructure:"routing_key"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	RetryDelayMS  int    `mapstructure:"retry_delay_ms"`
	PoolSize      int    `mapstructure:"pool_size"`
}

// IngestConfig 正規化與持久化管線配置.
type IngestConfig struct {
	Workers          int    `mapstructure:"workers"`           // 0 或 1 表示依序處理.
	DefaultDirection string `mapstructure:"default_direction"` // inbound | outbound.
	MaxRawString     int    `mapstructure:"max_raw_string"`    // 原始快照中單一字串的最大長度.
}

var (
	config *Config
	// ENV 當前環境變數.
	ENV string = "local"
)

// Load 載入設定檔.
func Load(testCfg ...*Config) error {
	// 如果直接傳入配置（主要用於測試），設定並驗證
	if len(testCfg) > 0 && testCfg[0] != nil {
		applyDefaults(testCfg[0])
		if err := validateConfig(testCfg[0]); err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}
		config = testCfg[0]
		return nil
	}

	v := viper.New()

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
		// 從檔案名稱推斷環境
		baseName := filepath.Base(configPath)
		ENV = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	} else {
		v.SetConfigName(ENV)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}

	// 環境變數覆蓋，例如 WEBHOOK_SECRET、DATABASE_MONGO_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("讀取配置檔案失敗: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失敗: %w", err)
	}

	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("配置驗證失敗: %w", err)
	}

	config = cfg
	return nil
}

// bindEnvKeys 讓 Unmarshal 能看到只存在於環境變數中的鍵.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"webhook.secret",
		"database.mongo.url",
		"database.mongo.username",
		"database.mongo.password",
		"queue.enabled",
		"queue.url",
		"ingest.workers",
	} {
		_ = v.BindEnv(key)
	}
}

// applyDefaults 補上未設定的預設值.
func applyDefaults(cfg *Config) {
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = constants.DefaultRequestTimeout
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = constants.DefaultSignatureHeader
	}
	if cfg.Webhook.CompanyHeader == "" {
		cfg.Webhook.CompanyHeader = constants.DefaultCompanyHeader
	}
	if cfg.Webhook.MaxBodySize <= 0 {
		cfg.Webhook.MaxBodySize = constants.DefaultMaxRequestBodySize
	}
	if cfg.Queue.Exchange == "" {
		cfg.Queue.Exchange = constants.DefaultQueueExchange
	}
	if cfg.Queue.RoutingKey == "" {
		cfg.Queue.RoutingKey = constants.DefaultQueueRoutingKey
	}
	if cfg.Queue.RetryAttempts <= 0 {
		cfg.Queue.RetryAttempts = constants.DefaultQueueRetryAttempts
	}
	if cfg.Queue.RetryDelayMS <= 0 {
		cfg.Queue.RetryDelayMS = constants.DefaultQueueRetryDelayMS
	}
	if cfg.Queue.PoolSize <= 0 {
		cfg.Queue.PoolSize = constants.DefaultQueuePoolSize
	}
	if cfg.Ingest.DefaultDirection == "" {
		cfg.Ingest.DefaultDirection = "inbound"
	}
	if cfg.Ingest.MaxRawString <= 0 {
		cfg.Ingest.MaxRawString = constants.DefaultMaxRawString
	}
}

// Get 取得設定.
func Get() *Config {
	return config
}

// SetEnv 設定環境.
func SetEnv(env string) {
	ENV = env
}

// GetEnv 取得當前環境.
func GetEnv() string {
	return ENV
}

// validateConfig 驗證配置的有效性
func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("應用程式名稱不能為空")
	}

	if cfg.Server.Port == "" {
		return fmt.Errorf("伺服器端口不能為空")
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("伺服器超時時間必須大於 0")
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("啟用 TLS 時必須設定 cert_file 與 key_file")
	}

	if cfg.Database.Mongo.URL == "" {
		return fmt.Errorf("MongoDB URL 不能為空")
	}
	if cfg.Database.Mongo.Database == "" {
		return fmt.Errorf("MongoDB 資料庫名稱不能為空")
	}
	if cfg.Database.Mongo.MaxPoolSize > 0 && cfg.Database.Mongo.MinPoolSize > cfg.Database.Mongo.MaxPoolSize {
		return fmt.Errorf("MongoDB 最小連接池大小不能大於最大連接池大小")
	}

	if cfg.Log.RotationTimeHours <= 0 {
		return fmt.Errorf("日誌輪轉時間必須大於 0")
	}
	if cfg.Log.MaxAgeDays <= 0 {
		return fmt.Errorf("日誌保留天數必須大於 0")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("日誌檔案最大大小必須大於 0")
	}

	if cfg.Queue.Enabled && cfg.Queue.URL == "" {
		return fmt.Errorf("啟用佇列時 queue.url 不能為空")
	}

	if cfg.Ingest.Workers < 0 {
		return fmt.Errorf("ingest.workers 不能為負數")
	}
	switch cfg.Ingest.DefaultDirection {
	case "inbound", "outbound":
	default:
		return fmt.Errorf("ingest.default_direction 必須是 inbound 或 outbound")
	}

	return nil
}

// IsDebug 檢查是否為除錯模式
func IsDebug() bool {
	if config != nil {
		return config.App.Debug
	}
	return false
}

// GetServerAddr 取得伺服器地址
func GetServerAddr() string {
	if config != nil {
		return fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)
	}
	return "localhost:8080"
}
