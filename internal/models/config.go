package models

// ConfigError is returned for invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// RelayConfig tunes the queue/retry/DLQ engine.
type RelayConfig struct {
	MaxAttempts    int `json:"maxAttempts"`
	LockTTLSec     int `json:"lockTtlSec"`
	PollTimeoutSec int `json:"pollTimeoutSec"`
	DLQRetryBatch  int `json:"dlqRetryBatch"`
}

// RetryConfig tunes the exponential backoff used for startup connects.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type Config struct {
	LogLevel      string         `json:"logLevel"`
	RetentionDays int            `json:"retentionDays"`
	Server        ServerConfig   `json:"server"`
	Redis         RedisConfig    `json:"redis"`
	Database      DatabaseConfig `json:"database"`
	Relay         RelayConfig    `json:"relay"`
	Retry         RetryConfig    `json:"retry"`
	Tracing       TracingConfig  `json:"tracing"`
}
