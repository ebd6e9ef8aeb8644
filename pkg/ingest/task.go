package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ccollicutt/synclog/internal/logging"
	"github.com/ccollicutt/synclog/pkg/classify"
	"github.com/ccollicutt/synclog/pkg/model"
	"github.com/ccollicutt/synclog/pkg/parser"
	"github.com/ccollicutt/synclog/pkg/store"
)

// Task parses work items into a store. A Task holds no per-file state and
// may be shared by concurrent workers.
type Task struct {
	gateway    store.Gateway
	chain      *classify.Chain
	hash       string
	batchSize  int
	openSource func(path string) parser.LineSource
	now        func() time.Time
}

// Option configures a Task.
type Option func(*Task)

// WithChain replaces the default classification chain.
func WithChain(c *classify.Chain) Option {
	return func(t *Task) {
		t.chain = c
	}
}

// WithHashAlgorithm sets the content digest (sha256 or md5).
func WithHashAlgorithm(name string) Option {
	return func(t *Task) {
		t.hash = name
	}
}

// WithBatchSize buffers up to n records per write when the gateway
// implements store.BatchAppender.
func WithBatchSize(n int) Option {
	return func(t *Task) {
		t.batchSize = n
	}
}

// WithSourceOpener overrides how line sources are opened.
func WithSourceOpener(fn func(path string) parser.LineSource) Option {
	return func(t *Task) {
		t.openSource = fn
	}
}

// NewTask creates a Task writing to gw.
func NewTask(gw store.Gateway, opts ...Option) *Task {
	t := &Task{
		gateway:   gw,
		chain:     classify.New(),
		hash:      parser.HashSHA256,
		batchSize: 1,
		openSource: func(path string) parser.LineSource {
			return parser.NewFileSource(path)
		},
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Parse runs one item to a terminal state. The returned Result is never nil.
// On failure the error is a *TaskError and Result.State is Failed; the file
// version stays incomplete so the next run retries it from the first line.
func (t *Task) Parse(ctx context.Context, item model.WorkItem) (*Result, error) {
	r := &run{
		task:   t,
		item:   item,
		result: &Result{Item: item, State: NotStarted},
		logger: logging.WithFields(ctx, "owner", item.Owner, "file", filepath.Base(item.Path)),
	}

	err := r.execute(ctx)
	if err != nil {
		r.result.State = Failed
		r.logger.Debug("parse failed", "error", err, "lines", r.result.Lines)
		return r.result, err
	}
	return r.result, nil
}

// run holds the state of one Parse call.
type run struct {
	task    *Task
	item    model.WorkItem
	result  *Result
	logger  *slog.Logger
	version *model.FileVersion
	pending []model.Record
}

func (r *run) fail(stage Stage, sentinel, err error) error {
	if sentinel != nil && !isContextErr(err) {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &TaskError{Item: r.item, Stage: stage, Err: err}
}

func (r *run) execute(ctx context.Context) error {
	t := r.task

	path, err := filepath.Abs(r.item.Path)
	if err != nil {
		return r.fail(StageHash, ErrFileUnreadable, err)
	}
	fileName := filepath.Base(path)

	digest, err := parser.HashFile(path, t.hash)
	if err != nil {
		return r.fail(StageHash, ErrFileUnreadable, err)
	}

	existing, err := t.gateway.FindCompletedVersion(ctx, r.item.Owner, fileName, digest)
	if err != nil {
		return r.fail(StageLookup, ErrStorage, err)
	}
	if existing != nil {
		r.result.State = CompletedSkipped
		r.result.Version = existing
		r.logger.Debug("already ingested", "version_id", existing.ID, "hash", digest)
		return nil
	}

	version, err := t.gateway.CreateVersion(ctx, &model.FileVersion{
		Owner:         r.item.Owner,
		FileName:      fileName,
		Path:          path,
		Hash:          digest,
		HashAlgorithm: hashName(t.hash),
		ParsedAt:      t.now(),
	})
	if err != nil {
		return r.fail(StageCreate, ErrStorage, err)
	}
	r.version = version
	r.result.Version = version
	r.result.State = InProgress
	r.logger = r.logger.With("version_id", version.ID)
	r.logger.Debug("parse started", "hash", digest)

	if err := r.consume(ctx, path); err != nil {
		return err
	}

	if err := r.flush(ctx); err != nil {
		return err
	}

	if err := t.gateway.MarkComplete(ctx, version); err != nil {
		return r.fail(StageComplete, ErrStorage, err)
	}

	r.result.State = Completed
	r.logger.Debug("parse completed",
		"lines", r.result.Lines,
		"sync", r.result.Sync,
		"skipped", r.result.Skipped,
		"errors", r.result.Errors,
		"unparsed", r.result.Unparsed,
	)
	return nil
}

func (r *run) consume(ctx context.Context, path string) error {
	src := r.task.openSource(path)
	defer src.Close()

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return r.fail(StageRead, ErrFileUnreadable, err)
		}

		r.result.Lines++
		outcome := r.task.chain.Classify(line.Text, classify.LineContext{
			Version: r.version,
			LineNum: line.LineNum,
		})
		r.count(outcome)

		rec := outcome.Record()
		if rec == nil {
			continue
		}
		if err := r.append(ctx, rec); err != nil {
			return err
		}
	}
}

func (r *run) count(o classify.Outcome) {
	for _, d := range o.Diagnostics {
		r.result.Malformed++
		r.logger.Warn("malformed line", "matcher", d.Matcher, "line_num", d.LineNum, "line", d.Line, "error", d.Err)
	}

	switch o.Kind {
	case classify.OutcomeNoise:
		r.result.Noise++
	case classify.OutcomeUnparsed:
		r.result.Unparsed++
	case classify.OutcomeClassified:
		cl := o.Classified
		switch cl.Kind {
		case model.LineKindSync:
			r.result.Sync++
			if cl.Modification == model.ModificationUnknown {
				r.result.UnknownMods++
				r.logger.Debug("unknown modification code", "line_num", cl.LineNum, "document_id", cl.DocumentID)
			}
		case model.LineKindSkipped:
			r.result.Skipped++
		case model.LineKindError:
			r.result.Errors++
		}
	}
}

func (r *run) append(ctx context.Context, rec model.Record) error {
	if _, ok := r.task.gateway.(store.BatchAppender); !ok || r.task.batchSize <= 1 {
		if err := r.task.gateway.AppendLine(ctx, rec); err != nil {
			return r.fail(StageAppend, ErrStorage, err)
		}
		return nil
	}

	r.pending = append(r.pending, rec)
	if len(r.pending) >= r.task.batchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *run) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}

	batcher := r.task.gateway.(store.BatchAppender)
	if err := batcher.AppendLines(ctx, r.pending); err != nil {
		return r.fail(StageAppend, ErrStorage, err)
	}
	r.pending = r.pending[:0]
	return nil
}

func hashName(algorithm string) string {
	if algorithm == "" {
		return parser.HashSHA256
	}
	return algorithm
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
