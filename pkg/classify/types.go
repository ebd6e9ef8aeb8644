// Package classify turns raw sync log lines into structured records.
//
// Each recognized line shape has a Matcher. A Chain tries the matchers in a
// fixed order and the first one that matches decides the outcome. Lines that
// match nothing are either known noise (no record) or kept verbatim as
// unparsed lines.
package classify

import (
	"fmt"

	"github.com/ccollicutt/synclog/pkg/model"
)

// Status is the result of trying one matcher against one line.
type Status int

const (
	// NoMatch means the line does not have the matcher's shape.
	NoMatch Status = iota

	// Matched means the line was fully parsed.
	Matched

	// Malformed means the outer grammar fit but an inner field did not parse.
	// The chain treats it like NoMatch.
	Malformed
)

func (s Status) String() string {
	switch s {
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the value returned by a Matcher.
type Result struct {
	Status Status

	// Line is set when Status is Matched.
	Line *model.ClassifiedLine

	// Err describes why a Malformed line could not be parsed.
	Err error
}

// LineContext identifies where a line came from.
type LineContext struct {
	// Version is the FileVersion records are attached to. May be nil when
	// classifying without persistence.
	Version *model.FileVersion

	// LineNum is the 1-based line number in the file.
	LineNum int
}

func (lc LineContext) newLine(kind model.LineKind) *model.ClassifiedLine {
	cl := &model.ClassifiedLine{
		LineNum: lc.LineNum,
		Kind:    kind,
	}
	if v := lc.Version; v != nil {
		cl.FileVersionID = v.ID
		cl.Owner = v.Owner
		cl.FileName = v.FileName
	}
	return cl
}

func (lc LineContext) fileName() string {
	if lc.Version == nil {
		return ""
	}
	return lc.Version.FileName
}

// OutcomeKind says which record, if any, a line produced.
type OutcomeKind int

const (
	OutcomeClassified OutcomeKind = iota
	OutcomeNoise
	OutcomeUnparsed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClassified:
		return "classified"
	case OutcomeNoise:
		return "noise"
	case OutcomeUnparsed:
		return "unparsed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the single result of running a line through the Chain.
type Outcome struct {
	Kind OutcomeKind

	// Classified is set for OutcomeClassified.
	Classified *model.ClassifiedLine

	// Unparsed is set for OutcomeUnparsed.
	Unparsed *model.UnparsedLine

	// Diagnostics holds malformed matches that were skipped on the way.
	Diagnostics []Diagnostic
}

// Record returns the record to persist, or nil for noise.
func (o Outcome) Record() model.Record {
	switch o.Kind {
	case OutcomeClassified:
		return o.Classified
	case OutcomeUnparsed:
		return o.Unparsed
	default:
		return nil
	}
}

// Diagnostic describes a line that fit a shape but failed to parse.
type Diagnostic struct {
	Matcher  string
	FileName string
	LineNum  int
	Line     string
	Err      error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d: %s matcher: %v", d.FileName, d.LineNum, d.Matcher, d.Err)
}
