package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/inspect"
)

// InspectOptions holds command-line options for the inspect command.
type InspectOptions struct {
	Output      string
	SampleSize  int
	WriteConfig string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <log-file>",
		Short: "Classify a sample of a log file without storing anything",
		Long: `Classify the first lines of a sync log file and report how many
fall into each shape (sync, skipped, error, noise, unparsed).

Use it to check that a file is a sync log before ingesting it.
Optionally generates a starter config with --write-config, using the
file's grandparent directory as the root and its parent as the owner.

Example:
  synclog inspect /data/logs/alice/serverdb_sync.log
  synclog inspect --sample 500 /data/logs/alice/serverdb_sync.log
  synclog inspect -w synclog.yaml /data/logs/alice/serverdb_sync.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", inspect.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string, opts *InspectOptions) error {
	logFile := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	sampler := inspect.New(inspect.WithSampleSize(opts.SampleSize))
	report, err := sampler.SampleFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("inspection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "text":
		return outputInspectText(out, report)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputInspectText(w io.Writer, report *inspect.Report) error {
	fmt.Fprintln(w, "=== Sync Log Inspection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", report.Path)
	fmt.Fprintf(w, "Lines sampled: %d\n", report.SampledLines)
	fmt.Fprintln(w)

	if report.SampledLines == 0 {
		fmt.Fprintln(w, "File is empty.")
		return nil
	}

	for _, c := range report.Counts {
		fmt.Fprintf(w, "  %-9s %5d  (%.1f%%)\n", c.Shape, c.Count, c.Fraction*100)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Coverage: %.1f%% of sampled lines recognized\n", report.Coverage()*100)

	if best := report.Dominant(); best != nil && best.SampleLine != "" {
		fmt.Fprintf(w, "Most common shape: %s\n  %s\n", best.Shape, truncate(best.SampleLine, 100))
	}

	if report.UnknownMods > 0 {
		fmt.Fprintf(w, "Unknown modification codes: %d\n", report.UnknownMods)
	}

	if report.Malformed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "WARNING: %d line(s) looked like entries but failed to parse:\n", report.Malformed)
		for _, d := range report.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}

	if report.Coverage() < 0.5 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: most lines were not recognized. This may not be a sync log file.")
	}

	return nil
}

// writeStarterConfig writes a config whose root contains the owner folder
// holding logFile.
func writeStarterConfig(w io.Writer, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	content := generateStarterConfig(logFile)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

func generateStarterConfig(logFile string) string {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}
	ownerDir := filepath.Dir(absLogFile)
	root := filepath.Dir(ownerDir)

	return fmt.Sprintf(`# synclog configuration
# Generated by: synclog inspect %s

# Each subdirectory of a root is an owner (here: %s).
roots:
  - %s

file_pattern: %q

store:
  driver: %s
  dsn: %s
  # For PostgreSQL:
  # driver: postgres
  # dsn: ${DATABASE_URL}

concurrency:
  mode: %s
  workers: 0        # 0 = one per CPU
  queue_size: %d
  progress_interval: %s

ingest:
  hash: %s
  batch_size: 100

logging:
  level: %s
  format: %s
`, filepath.Base(absLogFile), filepath.Base(ownerDir), root,
		config.DefaultFilePattern,
		config.DefaultStoreDriver, config.DefaultStoreDSN,
		config.DefaultMode, config.DefaultQueueSize, config.DefaultProgressInterval,
		config.DefaultHash,
		config.DefaultLogLevel, config.DefaultLogFormat)
}

// truncate shortens a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
