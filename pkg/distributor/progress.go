package distributor

import (
	"log/slog"

	"github.com/ccollicutt/synclog/pkg/ingest"
	"github.com/ccollicutt/synclog/pkg/model"
)

// Progress receives run events. Implementations must be safe for
// concurrent use.
type Progress interface {
	// Remaining reports how many items are still waiting in the queue.
	Remaining(n int)
	Skipped(item model.WorkItem)
	Completed(item model.WorkItem, res *ingest.Result)
	Failed(item model.WorkItem, err error)
}

// NopProgress discards all events.
type NopProgress struct{}

func (NopProgress) Remaining(int)                             {}
func (NopProgress) Skipped(model.WorkItem)                    {}
func (NopProgress) Completed(model.WorkItem, *ingest.Result) {}
func (NopProgress) Failed(model.WorkItem, error)              {}

// LogProgress writes events through a slog.Logger.
type LogProgress struct {
	Logger *slog.Logger
}

// NewLogProgress returns a LogProgress using logger, or slog.Default if nil.
func NewLogProgress(logger *slog.Logger) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{Logger: logger}
}

func (p *LogProgress) Remaining(n int) {
	p.Logger.Info("files remaining", "remaining", n)
}

func (p *LogProgress) Skipped(item model.WorkItem) {
	p.Logger.Info("file already ingested", "owner", item.Owner, "path", item.Path)
}

func (p *LogProgress) Completed(item model.WorkItem, res *ingest.Result) {
	attrs := []any{"owner", item.Owner, "path", item.Path}
	if res == nil {
		p.Logger.Info("file ingested", attrs...)
		return
	}
	attrs = append(attrs, "lines", res.Lines)
	if res.Version != nil {
		attrs = append(attrs, "version_id", res.Version.ID)
	}
	p.Logger.Info("file ingested", attrs...)
}

func (p *LogProgress) Failed(item model.WorkItem, err error) {
	p.Logger.Error("file failed", "owner", item.Owner, "path", item.Path, "error", err)
}
