package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OTP_TTL", "")
	t.Setenv("EMAIL_FROM", "")
	t.Setenv("EMAIL_USER", "shop@example.com")

	cfg := LoadConfig()

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 10*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, 5, cfg.Auth.OTPMaxAttempts)
	assert.Equal(t, 6, cfg.Auth.OTPLength)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "shop@example.com", cfg.SMTP.From, "from falls back to the SMTP user")
	assert.NotEmpty(t, cfg.JWT.Secret, "development gets a placeholder secret")
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("STORAGE_DRIVER", "Memory")

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.GetServerAddress())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.S3.Enabled)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestValidateRejectsProductionWithoutSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", EnvProduction)
	t.Setenv("JWT_SECRET", "")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}
