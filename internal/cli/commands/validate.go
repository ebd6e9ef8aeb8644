package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a synclog configuration file without ingesting anything.

Checks:
  - YAML or TOML syntax
  - Required fields (roots, store driver and DSN)
  - Concurrency mode and hash algorithm
  - Log files under the roots (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	workers := "one per CPU"
	if cfg.Concurrency.Workers > 0 {
		workers = fmt.Sprintf("%d", cfg.Concurrency.Workers)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Roots:        %d\n", len(cfg.Roots))
	fmt.Fprintf(out, "  File pattern: %s\n", cfg.FilePattern)
	fmt.Fprintf(out, "  Store:        %s\n", cfg.Store.Driver)
	fmt.Fprintf(out, "  Mode:         %s (workers: %s)\n", cfg.Concurrency.Mode, workers)
	fmt.Fprintf(out, "  Hash:         %s\n", cfg.Ingest.Hash)

	// Missing files are only a warning
	items, err := parser.NewOwnerEnumerator(cfg.Roots, cfg.FilePattern).Collect(ctx)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error enumerating roots: %v\n", err)
	} else if len(items) == 0 {
		fmt.Fprintf(out, "\nWarning: No files match %s under the roots\n", cfg.FilePattern)
	} else {
		fmt.Fprintf(out, "\nLog files matched: %d\n", len(items))
		for _, item := range items {
			fmt.Fprintf(out, "  - %s\n", item)
		}
	}

	return nil
}
