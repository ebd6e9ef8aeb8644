package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/store"
)

// StatusOptions holds command-line options for the status command.
type StatusOptions struct {
	Owner  string
	Output string
}

// VersionStatus is one stored file version with its record counts.
type VersionStatus struct {
	*model.FileVersion
	Classified int `json:"classified_lines"`
	Unparsed   int `json:"unparsed_lines"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status <config-file>",
		Short: "List ingested file versions",
		Long: `List the file versions recorded in the configured store, oldest
first, with their completion state and stored line counts.

Incomplete versions belong to runs that failed or were interrupted; the
next parse run ingests those files again under a new version.

Example:
  synclog status config.yaml
  synclog status --owner alice config.yaml
  synclog status -o json config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Only list versions of this owner")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string, opts *StatusOptions) error {
	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	ctx := commandContext(cmd)
	cfg, err := loadConfig(ctx, args[0])
	if err != nil {
		return err
	}

	ctx, _, closer := setupLogging(ctx, cmd, cfg)
	defer closer.Close()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	statuses, err := collectStatus(ctx, st, opts.Owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Output == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(statuses)
	}
	return outputStatusText(out, statuses)
}

func collectStatus(ctx context.Context, admin store.Admin, owner string) ([]VersionStatus, error) {
	versions, err := admin.ListVersions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing file versions: %w", err)
	}

	statuses := make([]VersionStatus, 0, len(versions))
	for _, v := range versions {
		classified, unparsed, err := admin.CountRecords(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("counting records of %s: %w", v.ID, err)
		}
		statuses = append(statuses, VersionStatus{
			FileVersion: v,
			Classified:  classified,
			Unparsed:    unparsed,
		})
	}
	return statuses, nil
}

func outputStatusText(w io.Writer, statuses []VersionStatus) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "No file versions stored.")
		return err
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	incomplete := cell.Foreground(lipgloss.Color("220"))

	complete := 0
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("OWNER", "FILE", "VERSION", "HASH", "STATE", "PARSED AT", "CLASSIFIED", "UNPARSED")

	for _, s := range statuses {
		state := "incomplete"
		if s.Complete {
			state = "complete"
			complete++
		}
		t.Row(
			s.Owner,
			s.FileName,
			truncateID(s.ID, 8),
			truncateID(s.Hash, 12),
			state,
			s.ParsedAt.UTC().Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.Classified),
			strconv.Itoa(s.Unparsed),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		if !statuses[row].Complete {
			return incomplete
		}
		return cell
	})

	fmt.Fprintln(w, t.String())
	_, err := fmt.Fprintf(w, "%d version(s), %d complete, %d incomplete\n",
		len(statuses), complete, len(statuses)-complete)
	return err
}

func truncateID(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
