package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Name: "chat-ingest", Version: "test"},
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8080", Timeout: 30},
		Database: DatabaseConfig{Mongo: MongoConfig{URL: "mongodb://localhost:27017", Database: "ingest", MaxPoolSize: 10}},
		Log:      LogConfig{RotationTimeHours: 24, MaxAgeDays: 7, MaxSizeMB: 100},
	}
}

func TestLoad_InjectedConfigGetsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Load(cfg))

	got := Get()
	assert.Equal(t, "X-Webhook-Secret", got.Webhook.SignatureHeader)
	assert.Equal(t, "X-Company-Id", got.Webhook.CompanyHeader)
	assert.Equal(t, int64(10<<20), got.Webhook.MaxBodySize)
	assert.Equal(t, "inbound", got.Ingest.DefaultDirection)
	assert.Equal(t, 4096, got.Ingest.MaxRawString)
	assert.Equal(t, "media", got.Queue.Exchange)
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty app name", func(c *Config) { c.App.Name = "" }},
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"no mongo url", func(c *Config) { c.Database.Mongo.URL = "" }},
		{"pool inverted", func(c *Config) { c.Database.Mongo.MinPoolSize = 20 }},
		{"bad log rotation", func(c *Config) { c.Log.RotationTimeHours = 0 }},
		{"queue without url", func(c *Config) { c.Queue.Enabled = true }},
		{"tls without cert", func(c *Config) { c.Server.TLS.Enabled = true }},
		{"negative workers", func(c *Config) { c.Ingest.Workers = -1 }},
		{"bad direction", func(c *Config) { c.Ingest.DefaultDirection = "sideways" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, Load(cfg))
		})
	}
}

func TestLoad_FromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staging.yaml")
	yaml := `
app:
  name: chat-ingest
  version: "1.0"
server:
  host: 0.0.0.0
  port: "9090"
  timeout: 15
database:
  mongo:
    url: mongodb://db:27017
    database: ingest
    max_pool_size: 20
log:
  rotation_time_hours: 24
  max_age_days: 30
  max_size_mb: 100
webhook:
  signature_header: X-Signature
ingest:
  workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Cleanup(func() { SetEnv("local") })

	require.NoError(t, Load())

	cfg := Get()
	assert.Equal(t, "staging", GetEnv())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "X-Signature", cfg.Webhook.SignatureHeader)
	assert.Equal(t, "s3cret", cfg.Webhook.Secret)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, "0.0.0.0:9090", GetServerAddr())
}
