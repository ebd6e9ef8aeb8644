package output

import (
	"context"
	"fmt"
	"io"
)

// Formatter renders a run Report.
type Formatter interface {
	Format(ctx context.Context, report *Report, w io.Writer) error
	Name() string
}

// FormatOptions are shared by all formatters.
type FormatOptions struct {
	// Verbose adds the per-shape line counters.
	Verbose bool

	// Quiet reduces the output to the run totals.
	Quiet bool
}

// NewFormatter returns the formatter for name. An empty name means text.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	}
	return nil, fmt.Errorf("unknown output format %q (must be text or json)", name)
}
