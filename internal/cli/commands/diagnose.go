package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/inspect"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/parser"
	"github.com/ccollicutt/synclog/pkg/store"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// maxListedFiles limits how many matched files are shown per owner.
const maxListedFiles = 5

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Root directories, owner folders and matching log files
- Store connectivity
- Whether a sample of the log files is recognized

Example:
  synclog diagnose config.yaml
  synclog diagnose -v config.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check roots and enumerate work items
	rootResults, items := checkRoots(ctx, cfg)
	results = append(results, rootResults...)

	// 4. Check store connectivity
	results = append(results, checkStore(ctx, cfg.Store))

	// 5. Sample the first file found
	if len(items) > 0 {
		results = append(results, checkSample(ctx, items[0]))
	}

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'synclog inspect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'synclog inspect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "toml"):
			result.Suggests = []string{
				"Check TOML syntax - strings must be quoted",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Roots: %d", len(cfg.Roots)),
		fmt.Sprintf("File pattern: %s", cfg.FilePattern),
		fmt.Sprintf("Store: %s", cfg.Store.Driver),
		fmt.Sprintf("Mode: %s", cfg.Concurrency.Mode),
	}
	return cfg, result
}

// checkRoots reports on each root and returns the work items found.
func checkRoots(ctx context.Context, cfg *config.Config) ([]DiagnosticResult, []model.WorkItem) {
	results := []DiagnosticResult{}

	roots, err := parser.ExpandGlobs(cfg.Roots)
	if err != nil {
		return append(results, DiagnosticResult{
			Check:   "Roots",
			Status:  "error",
			Message: fmt.Sprintf("Invalid root pattern: %v", err),
		}), nil
	}

	var all []model.WorkItem
	for _, root := range roots {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Root: %s", root),
		}

		info, err := os.Stat(root)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = "Directory does not exist"
			result.Suggests = []string{"Check the roots entries in your config"}
			results = append(results, result)
			continue
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access directory: %v", err)
			result.Suggests = []string{"Check directory permissions"}
			results = append(results, result)
			continue
		case !info.IsDir():
			result.Status = "error"
			result.Message = "Path is a file, not a directory"
			result.Suggests = []string{
				"A root is the directory that contains one folder per owner",
			}
			results = append(results, result)
			continue
		}

		items, err := parser.NewOwnerEnumerator([]string{root}, cfg.FilePattern).Collect(ctx)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Enumeration failed: %v", err)
			results = append(results, result)
			continue
		}

		perOwner := map[string][]string{}
		var owners []string
		for _, item := range items {
			if _, ok := perOwner[item.Owner]; !ok {
				owners = append(owners, item.Owner)
			}
			perOwner[item.Owner] = append(perOwner[item.Owner], item.Path)
		}

		if len(items) == 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("No files matching %s in any owner folder", cfg.FilePattern)
			result.Suggests = []string{
				"Check that log files live one level below the root (<root>/<owner>/<file>)",
				"Verify the file_pattern setting",
			}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("%d owner(s), %d file(s)", len(owners), len(items))
			for _, owner := range owners {
				files := perOwner[owner]
				result.Details = append(result.Details, fmt.Sprintf("%s: %d file(s)", owner, len(files)))
				for i, f := range files {
					if i == maxListedFiles {
						result.Details = append(result.Details, fmt.Sprintf("  ... and %d more", len(files)-maxListedFiles))
						break
					}
					result.Details = append(result.Details, "  "+f)
				}
			}
		}

		results = append(results, result)
		all = append(all, items...)
	}

	if len(all) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No log files found under any root",
			Suggests: []string{
				"Ensure at least one <root>/<owner>/" + cfg.FilePattern + " file exists and is readable",
			},
		})
	}

	return results, all
}

func checkStore(ctx context.Context, cfg config.Store) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Store: %s", cfg.Driver),
	}

	// Opening a SQLite store creates the file; only report that it will be created.
	if cfg.Driver == store.DriverSQLite {
		if _, err := os.Stat(cfg.DSN); errors.Is(err, os.ErrNotExist) {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Database %s does not exist yet", cfg.DSN)
			result.Suggests = []string{"It will be created on the first parse run"}
			return result
		}
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open store: %v", err)
		result.Suggests = []string{
			"Check store.dsn (or " + config.EnvStoreDSN + ")",
			"Registered drivers: " + strings.Join(store.Drivers(), ", "),
		}
		return result
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Store is not reachable: %v", err)
		return result
	}

	versions, err := st.ListVersions(ctx, "")
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Connected, but listing file versions failed: %v", err)
		return result
	}

	complete := 0
	for _, v := range versions {
		if v.Complete {
			complete++
		}
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Connected (%d file version(s), %d complete)", len(versions), complete)
	return result
}

func checkSample(ctx context.Context, item model.WorkItem) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Sample Coverage",
	}

	report, err := inspect.New().SampleFile(ctx, item.Path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read %s: %v", item.Path, err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}

	for _, c := range report.Counts {
		result.Details = append(result.Details, fmt.Sprintf("%s: %d", c.Shape, c.Count))
	}
	result.Details = append(result.Details, fmt.Sprintf("file: %s", item))

	if report.SampledLines == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s is empty", item.Path)
		return result
	}

	coverage := report.Coverage()
	switch {
	case coverage < 0.5:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Only %.0f%% of %d sampled lines recognized", coverage*100, report.SampledLines)
		result.Suggests = []string{
			"Run 'synclog inspect " + item.Path + "' to see which lines are not recognized",
		}
	case report.Malformed > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%.0f%% recognized, %d malformed line(s)", coverage*100, report.Malformed)
		result.Details = append(result.Details, report.Diagnostics...)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%.0f%% of %d sampled lines recognized", coverage*100, report.SampledLines)
	}

	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== synclog Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running parse.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}
