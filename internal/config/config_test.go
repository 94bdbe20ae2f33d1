package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, config.DefaultAPIHost, cfg.APIHost)
	assert.Equal(t, config.DefaultAPIPort, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.DefaultRedisEndpoint, cfg.RecordStore.Addr)
	assert.Equal(t, config.DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, config.DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("RECORDS_REDIS_ADDR", "redis:6379")
	t.Setenv("RECORDS_REDIS_PREFIX", "flowtest")
	t.Setenv("MAX_ITERATIONS", "50")
	t.Setenv("HTTP_TIMEOUT_MS", "1500")
	t.Setenv("MAIL_FROM", "ops@example.com")

	cfg := config.NewDefaultConfig()
	assert.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
	assert.Equal(t, "redis:6379", cfg.RecordStore.Addr)
	assert.Equal(t, "flowtest", cfg.RecordStore.Prefix)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTPTimeout)
	assert.Equal(t, "ops@example.com", cfg.MailFrom)
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")
	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())

	t.Setenv("API_PORT", "70000")
	cfg = config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())

	t.Setenv("API_PORT", "8080")
	t.Setenv("HTTP_TIMEOUT_MS", "-5")
	cfg = config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.APIPort = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidAPIPort)

	cfg = config.NewDefaultConfig()
	cfg.MaxIterations = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidMaxIterations)

	cfg = config.NewDefaultConfig()
	cfg.HTTPTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidHTTPTimeout)
}
