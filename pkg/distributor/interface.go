// Package distributor schedules parse tasks over enumerated work items.
//
// Two strategies implement Distributor: Cooperative runs one sequential
// consumer behind a bounded queue fed while enumeration is still running,
// and Pool enumerates everything up front and fans the items out to a fixed
// number of workers. Either can be swapped in without changing the parse
// task or the classification chain.
package distributor

import (
	"context"
	"fmt"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/ingest"
	"github.com/ccollicutt/synclog/pkg/model"
)

// Enumerator yields work items. *parser.OwnerEnumerator implements it.
type Enumerator interface {
	Enumerate(ctx context.Context, fn func(model.WorkItem) error) error
}

// FileParser runs one work item to completion. *ingest.Task implements it.
type FileParser interface {
	Parse(ctx context.Context, item model.WorkItem) (*ingest.Result, error)
}

// Distributor runs every enumerated item through a FileParser.
//
// Per-item failures are collected in the Summary and never stop other
// items. The returned error is only set when enumeration failed or the
// context was canceled before all items were handled.
type Distributor interface {
	Run(ctx context.Context, en Enumerator) (*Summary, error)
}

// New returns the strategy selected by cfg.Mode. A nil sink discards
// progress.
func New(cfg config.Concurrency, p FileParser, sink Progress) (Distributor, error) {
	if sink == nil {
		sink = NopProgress{}
	}

	switch cfg.Mode {
	case config.ModeCooperative:
		return NewCooperative(p, sink, cfg.QueueSize), nil
	case config.ModePooled, "":
		return NewPool(p, sink, cfg.Workers, cfg.ProgressInterval), nil
	default:
		return nil, fmt.Errorf("unknown concurrency mode %q", cfg.Mode)
	}
}
