// Package ingest runs the per-file parse task: hash the file, skip it if that
// exact content was already ingested, otherwise stream every line through
// the classification chain into the store and mark the version complete.
package ingest

import (
	"errors"
	"fmt"

	"github.com/ccollicutt/synclog/pkg/model"
)

// State is the lifecycle state of a parse task.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	CompletedSkipped
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case CompletedSkipped:
		return "completed_skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == CompletedSkipped || s == Failed
}

// Sentinel errors wrapped by TaskError.
var (
	// ErrFileUnreadable means the file could not be opened, hashed or read.
	ErrFileUnreadable = errors.New("file unreadable")

	// ErrStorage means the persistence gateway rejected an operation.
	ErrStorage = errors.New("storage failure")
)

// Stage names the step a task failed in.
type Stage string

const (
	StageHash     Stage = "hash"
	StageLookup   Stage = "lookup"
	StageCreate   Stage = "create_version"
	StageRead     Stage = "read"
	StageAppend   Stage = "append"
	StageComplete Stage = "mark_complete"
)

// TaskError is returned when a parse task ends in the Failed state.
type TaskError struct {
	Item  model.WorkItem
	Stage Stage
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Item, e.Stage, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Counters tallies what a task did with each line.
type Counters struct {
	Lines       int `json:"lines"`
	Sync        int `json:"sync"`
	Skipped     int `json:"skipped"`
	Errors      int `json:"errors"`
	Noise       int `json:"noise"`
	Unparsed    int `json:"unparsed"`
	Malformed   int `json:"malformed"`
	UnknownMods int `json:"unknown_modifications"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.Lines += other.Lines
	c.Sync += other.Sync
	c.Skipped += other.Skipped
	c.Errors += other.Errors
	c.Noise += other.Noise
	c.Unparsed += other.Unparsed
	c.Malformed += other.Malformed
	c.UnknownMods += other.UnknownMods
}

// Result reports how a parse task ended.
type Result struct {
	Item    model.WorkItem
	State   State
	Version *model.FileVersion
	Counters
}
