// Package config provides configuration loading and validation for synclog.
package config

import "time"

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// Roots are directories whose immediate subdirectories are owner folders.
	Roots []string `yaml:"roots" toml:"roots"`

	// FilePattern selects log files inside each owner folder (doublestar syntax).
	FilePattern string `yaml:"file_pattern" toml:"file_pattern"`

	Store       Store       `yaml:"store" toml:"store"`
	Concurrency Concurrency `yaml:"concurrency" toml:"concurrency"`
	Ingest      Ingest      `yaml:"ingest" toml:"ingest"`
	Logging     Logging     `yaml:"logging" toml:"logging"`
}

// Store selects and configures the persistence gateway.
type Store struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `yaml:"driver" toml:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	// ${VAR} and $VAR references are expanded from the environment.
	DSN string `yaml:"dsn" toml:"dsn"`

	// MaxConns caps the connection pool. 0 uses the driver default.
	MaxConns int `yaml:"max_conns" toml:"max_conns"`
}

// Mode names a work distribution strategy.
type Mode string

const (
	ModeCooperative Mode = "cooperative"
	ModePooled      Mode = "pooled"
)

// Concurrency configures the work distributor.
type Concurrency struct {
	Mode Mode `yaml:"mode" toml:"mode"`

	// Workers is the pooled worker count. 0 means one per CPU.
	Workers int `yaml:"workers" toml:"workers"`

	// QueueSize bounds the cooperative queue.
	QueueSize int `yaml:"queue_size" toml:"queue_size"`

	// ProgressInterval is how often the pooled monitor reports queue depth.
	ProgressInterval time.Duration `yaml:"progress_interval" toml:"progress_interval"`
}

// Ingest configures the per-file parse task.
type Ingest struct {
	// Hash is the content digest: sha256 or md5.
	Hash string `yaml:"hash" toml:"hash"`

	// BatchSize > 1 buffers records and writes them in batches when the
	// store supports it.
	BatchSize int `yaml:"batch_size" toml:"batch_size"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`

	// File, when set, receives log output through a rotating writer.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}
