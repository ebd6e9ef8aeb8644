// Package cli provides the command-line interface for synclog.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/internal/cli/commands"
	"github.com/ccollicutt/synclog/pkg/config"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return commands.ExitError
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:   "synclog",
		Short: "Ingest and classify database sync logs",
		Long: `synclog ingests the sync log files a replicated database server writes
for each owner (serverdb_*.log, one folder per owner).

Every line is classified as one of:
  - Sync entries (a document replicated to or from the master)
  - Skipped entries (a document the sync skipped, with the reason)
  - Errors
  - Noise (session start/stop banners, not stored)
  - Unparsed lines (stored verbatim)

Each file content is tracked by its hash, so re-running over the same
folders only ingests new or changed files.

Environment variables from .env (or --env-file) are loaded before any
configuration file is read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return fmt.Errorf("loading env file: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Load environment variables from these files (default .env)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewResetCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
