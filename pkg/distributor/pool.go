package distributor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/model"
)

// Pool enumerates all items first, then runs them on a fixed set of worker
// goroutines. A monitor reports the queue depth at a fixed interval.
type Pool struct {
	parser   FileParser
	sink     Progress
	workers  int
	interval time.Duration
}

// NewPool creates a Pool. A non-positive workers uses runtime.NumCPU and a
// non-positive interval uses config.DefaultProgressInterval.
func NewPool(p FileParser, sink Progress, workers int, interval time.Duration) *Pool {
	if sink == nil {
		sink = NopProgress{}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if interval <= 0 {
		interval = config.DefaultProgressInterval
	}
	return &Pool{parser: p, sink: sink, workers: workers, interval: interval}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Run parses every enumerated item. A claimed item always runs to the end;
// cancellation only stops workers from claiming more.
func (p *Pool) Run(ctx context.Context, en Enumerator) (*Summary, error) {
	col := newCollector(string(config.ModePooled), p.workers, p.sink)

	var items []model.WorkItem
	err := en.Enumerate(ctx, func(item model.WorkItem) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		return col.finish(0), fmt.Errorf("enumerating work items: %w", err)
	}

	queue := make(chan model.WorkItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	p.sink.Remaining(len(queue))

	taskCtx := context.WithoutCancel(ctx)
	done := make(chan struct{})
	monitorDone := make(chan struct{})

	go func() {
		defer close(monitorDone)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.sink.Remaining(len(queue))
			case <-done:
				return
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				item, ok := <-queue
				if !ok {
					return nil
				}
				col.process(taskCtx, p.parser, item)
			}
		})
	}
	_ = g.Wait()

	close(done)
	<-monitorDone

	remaining := len(queue)
	p.sink.Remaining(remaining)

	summary := col.finish(remaining)
	if remaining > 0 {
		return summary, ctx.Err()
	}
	return summary, nil
}
