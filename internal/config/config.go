package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/models"
)

var (
	ErrMissingRedisAddr = models.ConfigError{Message: "missing Redis address"}
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON config file, applies defaults and WHATPRO_*
// environment overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(c *models.Config) error {
	if c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port: %d", c.Server.Port)}
	}
	if c.Relay.MaxAttempts < 1 {
		return models.ConfigError{Message: fmt.Sprintf("invalid relay maxAttempts: %d", c.Relay.MaxAttempts)}
	}
	if c.Relay.LockTTLSec < 1 {
		return models.ConfigError{Message: fmt.Sprintf("invalid relay lockTtlSec: %d", c.Relay.LockTTLSec)}
	}
	return nil
}

func applyDefaults(c *models.Config) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Relay.MaxAttempts == 0 {
		c.Relay.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.Relay.LockTTLSec == 0 {
		c.Relay.LockTTLSec = constants.DefaultLockTTLSec
	}
	if c.Relay.PollTimeoutSec == 0 {
		c.Relay.PollTimeoutSec = constants.DefaultPollTimeoutSec
	}
	if c.Relay.DLQRetryBatch == 0 {
		c.Relay.DLQRetryBatch = constants.DefaultDLQRetryBatch
	}
	if c.Retry.InitialBackoffMs == 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs == 0 {
		c.Retry.MaxBackoffMs = constants.DefaultBackoffMaxMs
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = constants.DefaultConnectRetryAttempts
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "whatpro-manager"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if addr := os.Getenv("WHATPRO_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("WHATPRO_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("WHATPRO_REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			c.Redis.DB = parsed
		}
	}
	if path := os.Getenv("WHATPRO_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("WHATPRO_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Server.Port = parsed
		}
	}
	if level := os.Getenv("WHATPRO_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if endpoint := os.Getenv("WHATPRO_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.Enabled = true
	}
}
