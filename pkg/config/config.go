package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadDotEnv loads variables from the given .env files (default ".env" in
// the working directory) without overriding ones already set. Missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks a configuration for errors and fills zero values that
// have defaults.
func Validate(cfg *Config) error {
	if len(cfg.Roots) == 0 {
		return errors.New("roots: at least one root directory is required")
	}
	for i, root := range cfg.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("roots[%d]: must not be empty", i)
		}
	}

	if cfg.FilePattern == "" {
		cfg.FilePattern = DefaultFilePattern
	}
	if !doublestar.ValidatePattern(cfg.FilePattern) {
		return fmt.Errorf("file_pattern: invalid pattern %q", cfg.FilePattern)
	}

	if err := validateStore(&cfg.Store); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := validateConcurrency(&cfg.Concurrency); err != nil {
		return fmt.Errorf("concurrency: %w", err)
	}

	if err := validateIngest(&cfg.Ingest); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

func validateStore(s *Store) error {
	switch s.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("invalid driver %q (must be sqlite, postgres, or memory)", s.Driver)
	}

	s.DSN = expandEnvVar(s.DSN)
	if s.DSN == "" && s.Driver != "memory" {
		return fmt.Errorf("dsn is required for the %s driver", s.Driver)
	}

	if s.MaxConns < 0 {
		return errors.New("max_conns must be >= 0")
	}

	return nil
}

func validateConcurrency(c *Concurrency) error {
	switch c.Mode {
	case "":
		c.Mode = DefaultMode
	case ModeCooperative, ModePooled:
	default:
		return fmt.Errorf("invalid mode %q (must be cooperative or pooled)", c.Mode)
	}

	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}

	if c.QueueSize < 0 {
		return errors.New("queue_size must be >= 0")
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}

	if c.ProgressInterval < 0 {
		return errors.New("progress_interval must be >= 0")
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = DefaultProgressInterval
	}

	return nil
}

func validateIngest(in *Ingest) error {
	switch in.Hash {
	case "":
		in.Hash = DefaultHash
	case "sha256", "md5":
	default:
		return fmt.Errorf("invalid hash %q (must be sha256 or md5)", in.Hash)
	}

	if in.BatchSize < 0 {
		return errors.New("batch_size must be >= 0")
	}
	if in.BatchSize == 0 {
		in.BatchSize = DefaultBatchSize
	}

	return nil
}

func validateLogging(l *Logging) error {
	switch strings.ToLower(l.Level) {
	case "":
		l.Level = DefaultLogLevel
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", l.Level)
	}

	switch l.Format {
	case "":
		l.Format = DefaultLogFormat
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (must be text or json)", l.Format)
	}

	if l.MaxSizeMB < 0 {
		return errors.New("max_size_mb must be >= 0")
	}
	if l.MaxBackups < 0 {
		return errors.New("max_backups must be >= 0")
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
