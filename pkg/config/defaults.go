package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultFilePattern      = "serverdb_*.log"
	DefaultStoreDriver      = "sqlite"
	DefaultStoreDSN         = "./synclog.db"
	DefaultMaxConns         = 8
	DefaultMode             = ModePooled
	DefaultQueueSize        = 64
	DefaultProgressInterval = 2 * time.Second
	DefaultHash             = "sha256"
	DefaultBatchSize        = 1
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLogMaxSizeMB     = 50
	DefaultLogMaxBackups    = 3
)

// Environment variable names.
const (
	EnvStoreDSN    = "SYNCLOG_STORE_DSN"
	EnvStoreDriver = "SYNCLOG_STORE_DRIVER"
	EnvLogLevel    = "SYNCLOG_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Roots:       []string{},
		FilePattern: DefaultFilePattern,
		Store: Store{
			Driver:   DefaultStoreDriver,
			DSN:      DefaultStoreDSN,
			MaxConns: DefaultMaxConns,
		},
		Concurrency: Concurrency{
			Mode:             DefaultMode,
			QueueSize:        DefaultQueueSize,
			ProgressInterval: DefaultProgressInterval,
		},
		Ingest: Ingest{
			Hash:      DefaultHash,
			BatchSize: DefaultBatchSize,
		},
		Logging: Logging{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if driver := os.Getenv(EnvStoreDriver); driver != "" {
		c.Store.Driver = driver
	}
	if dsn := os.Getenv(EnvStoreDSN); dsn != "" {
		c.Store.DSN = dsn
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}
