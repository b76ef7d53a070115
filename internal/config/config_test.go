package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReportsAllMissing(t *testing.T) {
	t.Setenv("STORE", "mysql")
	for _, k := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		t.Setenv(k, "")
	}
	_, err := Load()
	require.Error(t, err)
	for _, k := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		assert.Contains(t, err.Error(), k)
	}
}

func TestLoadMemoryStoreNeedsNoDatabase(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_HOST", "")
	t.Setenv("VALIDATION_ON_UNCERTAINTY", "")
	t.Setenv("AUDIT_CONSUMER_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "reject", cfg.ValidationPolicy)
	assert.True(t, cfg.AuditConsumer)
}

func TestValidateStore(t *testing.T) {
	cfg := Config{Store: "sqlite", Port: "8080"}
	assert.Error(t, cfg.Validate())
	cfg.Store = "memory"
	assert.NoError(t, cfg.Validate())
	cfg.Port = "http"
	assert.Error(t, cfg.Validate())
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HUB_TEST_A=from-file\nHUB_TEST_B=from-file\n"), 0o600))
	t.Setenv("HUB_TEST_A", "from-env")
	t.Setenv("HUB_TEST_B", "")
	require.NoError(t, os.Unsetenv("HUB_TEST_B"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("HUB_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("HUB_TEST_B"))
	require.NoError(t, os.Unsetenv("HUB_TEST_B"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestRateLimitDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.RefillInterval)
	assert.Equal(t, 50*time.Second, cfg.TTL)
}
