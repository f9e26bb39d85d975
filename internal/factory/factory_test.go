package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsgifts-api/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment: config.EnvDevelopment,
		Storage:     config.StorageConfig{Driver: config.StorageMemory},
		Auth:        config.AuthConfig{OTPLength: 6, BcryptCost: 4},
		JWT:         config.JWTConfig{Secret: "factory-test-secret"},
	}
}

func TestNewWithMemoryStorageIsReady(t *testing.T) {
	f, err := New(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	ready, failures := f.IsHealthy(context.Background())
	assert.True(t, ready)
	assert.Empty(t, failures)
	assert.Nil(t, f.RateLimitCache())
	assert.Same(t, f.ServiceFactory(), f.ServiceFactory())
}

func TestUnreachableRedisFailsReadinessOutsideProduction(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, URL: "redis://127.0.0.1:1/0"}

	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	ready, failures := f.IsHealthy(context.Background())
	assert.False(t, ready)
	assert.Contains(t, failures, "redis")
	assert.Nil(t, f.RateLimitCache())
}

func TestMemoryStorageRejectedInProduction(t *testing.T) {
	cfg := memoryConfig()
	cfg.Environment = config.EnvProduction

	_, err := New(cfg)
	assert.ErrorContains(t, err, "memory storage is not allowed in production")
}
