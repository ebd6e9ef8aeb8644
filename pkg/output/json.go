package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter writes the report as one JSON document. In quiet mode it
// writes only the run summary on a single line, which suits log collectors.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns "json".
func (f *JSONFormatter) Name() string { return "json" }

// Format encodes report to w.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	if f.opts.Quiet {
		return enc.Encode(report.Summary)
	}

	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
