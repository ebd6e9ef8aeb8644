// Package inspect classifies a sample of a log file without persisting
// anything, to check how well the known line shapes cover it.
package inspect

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/ccollicutt/synclog/pkg/classify"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/parser"
)

// DefaultSampleSize is the number of lines sampled when no option is given.
const DefaultSampleSize = 100

// maxDiagnostics caps how many malformed lines a Report keeps.
const maxDiagnostics = 10

// Shape names the outcome of classifying one sampled line.
type Shape string

const (
	ShapeSync     Shape = "sync"
	ShapeSkipped  Shape = "skipped"
	ShapeError    Shape = "error"
	ShapeNoise    Shape = "noise"
	ShapeUnparsed Shape = "unparsed"
)

// Shapes lists every Shape in chain order.
var Shapes = []Shape{ShapeSync, ShapeSkipped, ShapeError, ShapeNoise, ShapeUnparsed}

// ShapeCount is the tally for one shape.
type ShapeCount struct {
	Shape      Shape   `json:"shape"`
	Count      int     `json:"count"`
	Fraction   float64 `json:"fraction"`
	SampleLine string  `json:"sample_line,omitempty"`
}

// Report holds the result of sampling a file.
type Report struct {
	Path         string       `json:"path,omitempty"`
	SampledLines int          `json:"sampled_lines"`
	Counts       []ShapeCount `json:"counts"`
	Malformed    int          `json:"malformed"`
	UnknownMods  int          `json:"unknown_modifications"`
	Diagnostics  []string     `json:"diagnostics,omitempty"`
}

// Count returns the number of sampled lines with the given shape.
func (r *Report) Count(s Shape) int {
	for _, c := range r.Counts {
		if c.Shape == s {
			return c.Count
		}
	}
	return 0
}

// Coverage is the fraction of sampled lines that produced a classified
// record or were recognized as noise.
func (r *Report) Coverage() float64 {
	if r.SampledLines == 0 {
		return 0
	}
	return float64(r.SampledLines-r.Count(ShapeUnparsed)) / float64(r.SampledLines)
}

// Dominant returns the most frequent shape, or nil when nothing was sampled.
func (r *Report) Dominant() *ShapeCount {
	var best *ShapeCount
	for i := range r.Counts {
		if r.Counts[i].Count == 0 {
			continue
		}
		if best == nil || r.Counts[i].Count > best.Count {
			best = &r.Counts[i]
		}
	}
	return best
}

// Sampler classifies the head of a file.
type Sampler struct {
	chain      *classify.Chain
	sampleSize int
}

// Option configures the Sampler.
type Option func(*Sampler)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// WithChain replaces the default classification chain.
func WithChain(c *classify.Chain) Option {
	return func(s *Sampler) {
		s.chain = c
	}
}

// New creates a Sampler using the default chain.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		chain:      classify.New(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleFile classifies up to the sample size of non-blank lines from path.
func (s *Sampler) SampleFile(ctx context.Context, path string) (*Report, error) {
	src := parser.NewFileSource(path)
	defer src.Close()

	var lines []string
	for len(lines) < s.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		lines = append(lines, line.Text)
	}

	report := s.SampleLines(lines)
	report.Path = path
	return report, nil
}

// SampleLines classifies the given lines.
func (s *Sampler) SampleLines(lines []string) *Report {
	report := &Report{SampledLines: len(lines)}

	counts := make(map[Shape]*ShapeCount, len(Shapes))
	for _, shape := range Shapes {
		counts[shape] = &ShapeCount{Shape: shape}
	}

	for i, line := range lines {
		outcome := s.chain.Classify(line, classify.LineContext{LineNum: i + 1})

		for _, d := range outcome.Diagnostics {
			report.Malformed++
			if len(report.Diagnostics) < maxDiagnostics {
				report.Diagnostics = append(report.Diagnostics, d.Error())
			}
		}

		shape := shapeOf(outcome)
		c := counts[shape]
		c.Count++
		if c.SampleLine == "" {
			c.SampleLine = line
		}

		if outcome.Classified != nil && outcome.Classified.Modification == model.ModificationUnknown {
			report.UnknownMods++
		}
	}

	for _, shape := range Shapes {
		c := counts[shape]
		if report.SampledLines > 0 {
			c.Fraction = float64(c.Count) / float64(report.SampledLines)
		}
		report.Counts = append(report.Counts, *c)
	}

	// Most frequent first; chain order breaks ties.
	sort.SliceStable(report.Counts, func(i, j int) bool {
		return report.Counts[i].Count > report.Counts[j].Count
	})

	return report
}

func shapeOf(o classify.Outcome) Shape {
	switch o.Kind {
	case classify.OutcomeNoise:
		return ShapeNoise
	case classify.OutcomeUnparsed:
		return ShapeUnparsed
	}

	switch o.Classified.Kind {
	case model.LineKindSync:
		return ShapeSync
	case model.LineKindSkipped:
		return ShapeSkipped
	default:
		return ShapeError
	}
}
