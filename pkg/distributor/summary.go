package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ccollicutt/synclog/pkg/ingest"
	"github.com/ccollicutt/synclog/pkg/model"
)

// ErrNoResult is recorded for a FileParser that returned neither a result
// nor an error.
var ErrNoResult = errors.New("parser returned no result")

// ItemFailure is one item whose parse task failed.
type ItemFailure struct {
	Item model.WorkItem
	Err  error
}

func (f ItemFailure) Error() string {
	return f.Err.Error()
}

func (f ItemFailure) Unwrap() error {
	return f.Err
}

// MarshalJSON renders the error as a string.
func (f ItemFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Owner string `json:"owner"`
		Path  string `json:"path"`
		Error string `json:"error"`
	}{f.Item.Owner, f.Item.Path, msg})
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Mode    string `json:"mode"`
	Workers int    `json:"workers"`

	// Files counts items handed to the parser.
	Files     int `json:"files"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Unclaimed counts enumerated items never started because the run
	// was canceled.
	Unclaimed int `json:"unclaimed"`

	Lines ingest.Counters `json:"lines"`

	Failures []ItemFailure `json:"failures"`

	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`
}

// Err joins all item failures, or returns nil if there were none.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// HasFailures reports whether any item failed.
func (s *Summary) HasFailures() bool {
	return s.Failed > 0
}

// collector accumulates results from concurrent executors.
type collector struct {
	mu      sync.Mutex
	summary *Summary
	sink    Progress
}

func newCollector(mode string, workers int, sink Progress) *collector {
	return &collector{
		summary: &Summary{
			Mode:     mode,
			Workers:  workers,
			Failures: []ItemFailure{},
			Started:  time.Now(),
		},
		sink: sink,
	}
}

// process runs one item and records its outcome.
func (c *collector) process(ctx context.Context, p FileParser, item model.WorkItem) {
	res, err := p.Parse(ctx, item)
	if res == nil && err == nil {
		err = ErrNoResult
	}

	c.mu.Lock()
	s := c.summary
	s.Files++
	if res != nil {
		s.Lines.Add(res.Counters)
	}
	switch {
	case err != nil:
		s.Failed++
		s.Failures = append(s.Failures, ItemFailure{Item: item, Err: err})
	case res != nil && res.State == ingest.CompletedSkipped:
		s.Skipped++
	default:
		s.Completed++
	}
	c.mu.Unlock()

	switch {
	case err != nil:
		c.sink.Failed(item, err)
	case res != nil && res.State == ingest.CompletedSkipped:
		c.sink.Skipped(item)
	default:
		c.sink.Completed(item, res)
	}
}

func (c *collector) finish(unclaimed int) *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summary.Unclaimed = unclaimed
	c.summary.Elapsed = time.Since(c.summary.Started)
	return c.summary
}
