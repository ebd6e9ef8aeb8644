package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// TextFormatter formats reports as human-readable text. Styling is only
// applied when the destination is a terminal.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		label: r.NewStyle().Foreground(lipgloss.Color("39")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("220")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w, newStyles(w))
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "synclog: %d files, %d ingested, %d skipped, %d failed\n",
		s.Files, s.Completed, s.Skipped, s.Failed)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer, st styles) error {
	s := report.Summary

	fmt.Fprintln(w, st.title.Render("=== synclog Run Report ==="))
	fmt.Fprintln(w)

	mode := s.Mode
	if s.Mode == "pooled" {
		mode = fmt.Sprintf("pooled (%d workers)", s.Workers)
	}
	fmt.Fprintf(w, "%s %s\n", st.label.Render("Mode:"), mode)
	if report.Metadata.DryRun {
		fmt.Fprintf(w, "%s %s\n", st.label.Render("Store:"), st.warn.Render("dry run (nothing persisted)"))
	} else if report.Metadata.StoreDriver != "" {
		fmt.Fprintf(w, "%s %s\n", st.label.Render("Store:"), report.Metadata.StoreDriver)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s %d\n", st.label.Render("Files:"), s.Files)
	fmt.Fprintf(w, "  %s %d\n", st.ok.Render("ingested:"), s.Completed)
	fmt.Fprintf(w, "  skipped:  %d\n", s.Skipped)
	if s.Failed > 0 {
		fmt.Fprintf(w, "  %s %d\n", st.fail.Render("failed:"), s.Failed)
	} else {
		fmt.Fprintf(w, "  failed:   %d\n", s.Failed)
	}
	if s.Unclaimed > 0 {
		fmt.Fprintf(w, "  %s %d\n", st.warn.Render("not started:"), s.Unclaimed)
	}

	if len(s.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.fail.Render("Failures:"))
		for _, failure := range s.Failures {
			fmt.Fprintf(w, "  - %s\n", failure.Err)
		}
	}

	if f.opts.Verbose {
		l := s.Lines
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %d\n", st.label.Render("Lines:"), l.Lines)
		fmt.Fprintf(w, "  sync: %d, skipped: %d, errors: %d\n", l.Sync, l.Skipped, l.Errors)
		fmt.Fprintf(w, "  noise: %d, unparsed: %d\n", l.Noise, l.Unparsed)
		if l.Malformed > 0 || l.UnknownMods > 0 {
			fmt.Fprintf(w, "  %s %d malformed, %d unknown modification codes\n",
				st.warn.Render("warnings:"), l.Malformed, l.UnknownMods)
		}
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Duration: %s\n", s.Elapsed.Round(time.Millisecond))

	return nil
}
