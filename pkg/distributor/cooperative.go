package distributor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/model"
)

// Cooperative feeds a bounded queue from a single producer and drains it
// with a single consumer that runs parse tasks one at a time.
type Cooperative struct {
	parser    FileParser
	sink      Progress
	queueSize int
}

// NewCooperative creates a Cooperative distributor. A non-positive
// queueSize uses config.DefaultQueueSize.
func NewCooperative(p FileParser, sink Progress, queueSize int) *Cooperative {
	if sink == nil {
		sink = NopProgress{}
	}
	if queueSize <= 0 {
		queueSize = config.DefaultQueueSize
	}
	return &Cooperative{parser: p, sink: sink, queueSize: queueSize}
}

// Run enumerates and parses items. Cancellation stops enumeration; items
// already queued are still parsed.
func (c *Cooperative) Run(ctx context.Context, en Enumerator) (*Summary, error) {
	col := newCollector(string(config.ModeCooperative), 1, c.sink)
	queue := make(chan model.WorkItem, c.queueSize)
	taskCtx := context.WithoutCancel(ctx)

	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)

		err := en.Enumerate(ctx, func(item model.WorkItem) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case queue <- item:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return fmt.Errorf("enumerating work items: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for item := range queue {
			col.process(taskCtx, c.parser, item)
			c.sink.Remaining(len(queue))
		}
		return nil
	})

	err := g.Wait()
	return col.finish(0), err
}
