// Package model defines the records produced by ingesting sync log files.
package model

import "time"

// Direction is the replication direction of a sync or skipped entry.
type Direction string

const (
	// DirectionFromMaster is a change pulled from the master replica.
	DirectionFromMaster Direction = "FROM-MASTER"

	// DirectionIntoMaster is a change pushed into the master replica.
	DirectionIntoMaster Direction = "INTO-MASTER"
)

// Modification is the kind of change recorded by a sync entry.
type Modification string

const (
	ModificationModified Modification = "MODIFIED"
	ModificationNew      Modification = "NEW"
	ModificationDelete   Modification = "DELETE"
	ModificationUnknown  Modification = "UNKNOWN"
)

// LineKind identifies which shape produced a ClassifiedLine.
type LineKind string

const (
	LineKindSync    LineKind = "sync"
	LineKindSkipped LineKind = "skipped"
	LineKindError   LineKind = "error"
)

// FileVersion tracks one attempt to ingest one exact file content.
type FileVersion struct {
	// ID is assigned by the persistence gateway on creation.
	ID string `json:"id"`

	// Owner is the name of the folder the file was found in.
	Owner string `json:"owner"`

	// FileName is the base name of the file.
	FileName string `json:"file_name"`

	// Path is the absolute path of the file.
	Path string `json:"path"`

	// Hash is the hex digest of the full file content.
	Hash string `json:"hash"`

	// HashAlgorithm names the digest used for Hash (sha256, md5).
	HashAlgorithm string `json:"hash_algorithm"`

	// ParsedAt is when parsing of this version started.
	ParsedAt time.Time `json:"parsed_at"`

	// Complete is true once every line was processed.
	Complete bool `json:"complete"`

	// CompletedAt is set together with Complete.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Record is a line-level record persisted for a FileVersion.
// It is implemented only by *ClassifiedLine and *UnparsedLine.
type Record interface {
	// VersionID returns the ID of the owning FileVersion.
	VersionID() string

	// Line returns the 1-based line number the record was derived from.
	Line() int

	isRecord()
}

// ClassifiedLine is a line that matched the sync, skipped or error shape.
// Fields that do not apply to the matched shape are left empty.
type ClassifiedLine struct {
	FileVersionID string       `json:"file_version_id"`
	Owner         string       `json:"owner"`
	FileName      string       `json:"file_name"`
	LineNum       int          `json:"line_num"`
	Kind          LineKind     `json:"kind"`
	Timestamp     time.Time    `json:"timestamp"`
	Database      string       `json:"database,omitempty"`
	Direction     Direction    `json:"direction,omitempty"`
	Author        string       `json:"author,omitempty"`
	Modification  Modification `json:"modification,omitempty"`
	DocumentID    string       `json:"document_id,omitempty"`
	IsSkipped     bool         `json:"is_skipped"`
	IsError       bool         `json:"is_error"`
	ErrorText     string       `json:"error_text,omitempty"`
}

func (c *ClassifiedLine) VersionID() string { return c.FileVersionID }
func (c *ClassifiedLine) Line() int         { return c.LineNum }
func (c *ClassifiedLine) isRecord()         {}

// UnparsedLine keeps the raw text of a line that matched no known shape.
type UnparsedLine struct {
	FileVersionID string `json:"file_version_id"`
	LineNum       int    `json:"line_num"`
	Text          string `json:"text"`
}

func (u *UnparsedLine) VersionID() string { return u.FileVersionID }
func (u *UnparsedLine) Line() int         { return u.LineNum }
func (u *UnparsedLine) isRecord()         {}

// WorkItem is one file to ingest, attributed to the owner folder it was
// found in.
type WorkItem struct {
	Owner string `json:"owner"`
	Path  string `json:"path"`
}

func (w WorkItem) String() string {
	return w.Owner + ":" + w.Path
}
