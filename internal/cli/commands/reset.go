package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResetOptions holds command-line options for the reset command.
type ResetOptions struct {
	Yes bool
}

// NewResetCommand creates the reset command.
func NewResetCommand() *cobra.Command {
	opts := &ResetOptions{}

	cmd := &cobra.Command{
		Use:   "reset <config-file>",
		Short: "Delete every stored file version and line record",
		Long: `Delete every file version, classified line and unparsed line from
the configured store. The next parse run ingests every file again.

This cannot be undone, so --yes is required.

Example:
  synclog reset --yes config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Confirm deletion of all stored data")

	return cmd
}

func runReset(cmd *cobra.Command, args []string, opts *ResetOptions) error {
	if !opts.Yes {
		return fmt.Errorf("refusing to reset without --yes")
	}

	ctx := commandContext(cmd)
	cfg, err := loadConfig(ctx, args[0])
	if err != nil {
		return err
	}

	ctx, logger, closer := setupLogging(ctx, cmd, cfg)
	defer closer.Close()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	versions, err := st.ListVersions(ctx, "")
	if err != nil {
		return fmt.Errorf("listing file versions: %w", err)
	}

	if err := st.Reset(ctx); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}

	logger.Info("store reset", "driver", cfg.Store.Driver, "versions", len(versions))
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file version(s) from %s store\n", len(versions), cfg.Store.Driver)
	return nil
}
