package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const minimalConfig = `{
	"redis": {"addr": "localhost:6379"},
	"database": {"path": "/tmp/whatpro.db"}
}`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Relay.MaxAttempts)
	assert.Equal(t, constants.DefaultLockTTLSec, cfg.Relay.LockTTLSec)
	assert.Equal(t, constants.DefaultPollTimeoutSec, cfg.Relay.PollTimeoutSec)
	assert.Equal(t, constants.DefaultBackoffInitialMs, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, "whatpro-manager", cfg.Tracing.ServiceName)
	assert.InDelta(t, 1.0, cfg.Tracing.SampleRate, 0.001)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"logLevel": "debug",
		"server": {"port": 9090},
		"redis": {"addr": "redis:6379", "db": 2},
		"database": {"path": "/data/whatpro.db"},
		"relay": {"maxAttempts": 5, "lockTtlSec": 60}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5, cfg.Relay.MaxAttempts)
	assert.Equal(t, 60, cfg.Relay.LockTTLSec)
}

func TestLoadConfigMissingRedis(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"database": {"path": "/tmp/x.db"}}`))
	assert.ErrorIs(t, err, ErrMissingRedisAddr)
}

func TestLoadConfigMissingDatabase(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"redis": {"addr": "localhost:6379"}}`))
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{
		"redis": {"addr": "localhost:6379"},
		"database": {"path": "/tmp/x.db"},
		"server": {"port": 99999}
	}`))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WHATPRO_REDIS_ADDR", "redis-prod:6379")
	t.Setenv("WHATPRO_DB_PATH", "/var/lib/whatpro.db")
	t.Setenv("WHATPRO_PORT", "8099")
	t.Setenv("WHATPRO_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "redis-prod:6379", cfg.Redis.Addr)
	assert.Equal(t, "/var/lib/whatpro.db", cfg.Database.Path)
	assert.Equal(t, 8099, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestOTLPEndpointEnablesTracing(t *testing.T) {
	t.Setenv("WHATPRO_OTLP_ENDPOINT", "otel-collector:4318")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otel-collector:4318", cfg.Tracing.OTLPEndpoint)
}
