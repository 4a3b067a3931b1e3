package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:config_test?mode=memory")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
}

func TestLoad_FromEnvironment(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CHECKOUT_TOKEN_TTL", "5m")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "root", cfg.AdminUsername)
	assert.Equal(t, 5*time.Minute, cfg.CheckoutTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RejectsMissingSecrets(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load("does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		DBDriver:         "mongo",
		DatabaseDSN:      "x",
		SessionSecret:    "0123456789abcdef",
		AdminUsername:    "a",
		AdminPassword:    "b",
		UploadDir:        "up",
		SessionTTL:       time.Hour,
		CheckoutTokenTTL: time.Minute,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}
