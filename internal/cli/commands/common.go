package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/internal/logging"
	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/store"
	_ "github.com/ccollicutt/synclog/pkg/store/memstore"
	_ "github.com/ccollicutt/synclog/pkg/store/postgres"
	_ "github.com/ccollicutt/synclog/pkg/store/sqlite"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Exit codes.
const (
	ExitOK       = 0
	ExitFailures = 1
	ExitError    = 2
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setupLogging configures slog from cfg, writing to stderr unless a log
// file is configured, and returns a context carrying the logger.
func setupLogging(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (context.Context, *slog.Logger, io.Closer) {
	logger, closer := logging.Setup(cfg.Logging, cmd.ErrOrStderr())
	return logging.WithContext(ctx, logger), logger, closer
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return st, nil
}
