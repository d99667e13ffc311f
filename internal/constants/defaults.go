package constants

// Relay engine defaults
const (
	DefaultMaxAttempts        = 3
	DefaultLockTTLSec         = 30
	DefaultPollTimeoutSec     = 5
	DefaultDrainErrorSleepSec = 2
	DefaultDLQRetryBatch      = 10
)

// Cache TTLs
const (
	DefaultInstanceCacheTTLDays = 30
	DefaultMessageTypeTTLHours  = 48
)

// Mapping retention
const (
	DefaultRetentionDays        = 30
	DefaultCleanupIntervalHours = 24
)

// Default retry/backoff values for startup connects
const (
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxMs          = 60000
	DefaultConnectRetryAttempts  = 5
	DefaultRedisDialTimeoutSec   = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default HTTP server values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultHTTPTimeoutSec        = 30
	ServerErrorChannelSize       = 1
)

// Classifier limits
const (
	MaxReactionLength  = 10
	CommandPrefix      = "."
	SystemNoteMarker   = "**SYSTEM:**"
	ExecutionListLimit = 50
)
