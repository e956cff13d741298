package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pilab-dev/requesttoken/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reqtoken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, config.StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "reqtoken", cfg.RedisPrefix)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "reqtoken", cfg.MongoDBName)
	assert.Equal(t, "requesttoken", cfg.OtelServiceName)
	assert.False(t, cfg.MetricsEnabled)

	key, err := cfg.ProtectionKeyBytes()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	path := writeConfig(t, `
log_level: debug
store_backend: redis
token_ttl: 5m
redis_addr: cache:6379
protection_key: `+key+`
`)
	t.Setenv("REQTOKEN_REDIS_ADDR", "override:6380")
	t.Setenv("REQTOKEN_REDIS_DB", "3")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.StoreBackendRedis, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "override:6380", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)

	b, err := cfg.ProtectionKeyBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"backend":   "store_backend: etcd\n",
		"ttl":       "token_ttl: 0s\n",
		"key b64":   "protection_key: '***'\n",
		"key short": "protection_key: " + base64.StdEncoding.EncodeToString([]byte("short")) + "\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
