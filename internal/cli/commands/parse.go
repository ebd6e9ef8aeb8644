package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/distributor"
	"github.com/ccollicutt/synclog/pkg/ingest"
	"github.com/ccollicutt/synclog/pkg/output"
	"github.com/ccollicutt/synclog/pkg/parser"
	"github.com/ccollicutt/synclog/pkg/store"
	"github.com/ccollicutt/synclog/pkg/store/memstore"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output  string
	Mode    string
	Workers int
	DryRun  bool
	Verbose bool
	Quiet   bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <config-file>",
		Short: "Ingest sync log files into the store",
		Long: `Ingest every sync log file found under the configured roots.

Each immediate subdirectory of a root is an owner. Files matching
file_pattern are hashed; content that was already fully ingested for the
same owner and file name is skipped. Every other file is classified line
by line and persisted, then marked complete.

Exit codes:
  0 - All files ingested or skipped
  1 - One or more files failed
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Distribution strategy (cooperative|pooled), overrides config")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Pooled worker count, overrides config (0 = one per CPU)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Classify into an in-memory store; nothing is persisted")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show line counters")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	ExitCode = ExitOK

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}

	if opts.Mode != "" {
		cfg.Concurrency.Mode = config.Mode(opts.Mode)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Concurrency.Workers = opts.Workers
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	ctx, logger, closer := setupLogging(ctx, cmd, cfg)
	defer closer.Close()

	var st store.Store
	if opts.DryRun {
		st = memstore.New()
	} else {
		st, err = openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
	}
	defer st.Close()

	task := ingest.NewTask(st,
		ingest.WithHashAlgorithm(cfg.Ingest.Hash),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
	)

	d, err := distributor.New(cfg.Concurrency, task, distributor.NewLogProgress(logger))
	if err != nil {
		return err
	}

	en := parser.NewOwnerEnumerator(cfg.Roots, cfg.FilePattern)
	summary, runErr := d.Run(ctx, en)

	report := output.NewReport(summary, configPath, cfg, opts.DryRun)
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("run incomplete: %w", runErr)
	}

	if report.HasFailures() {
		ExitCode = ExitFailures
	}

	return nil
}

func createFormatter(opts *ParseOptions) (output.Formatter, error) {
	return output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}
