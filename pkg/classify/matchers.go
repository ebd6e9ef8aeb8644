package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ccollicutt/synclog/pkg/model"
)

// TimestampLayout is the Go layout of the leading timestamp of every entry.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// SyncFromToken is the direction token that maps to DirectionFromMaster.
const SyncFromToken = "SYNC FROM"

var (
	syncPattern = regexp.MustCompile(
		`^(?P<timestamp>.*?) INFO \[(?P<database>.*?)\] \((?P<direction>.*?)\) Author\[(?P<author>.*?)\] Mod:'(?P<modification>.*?)' Doc ID:(?P<doc_id>.*)`)

	skippedPattern = regexp.MustCompile(
		`^(?P<timestamp>.*?) INFO \[(?P<database>.*?)\] \((?P<direction>.*?)\) \[Skipped\].(?P<message>.*?) Doc ID:(?P<doc_id>.*)`)

	errorPattern = regexp.MustCompile(
		`^(?P<timestamp>.*?) ERROR (?P<message>.*)`)

	noisePattern = compileAlternation(NoisePhrases)

	// time.Parse alone would also accept a missing fraction, more than six
	// fractional digits and a comma separator.
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{1,6}$`)
)

// ErrTimestampFormat is returned for timestamps that are not YYYY-MM-DD HH:MM:SS.ffffff.
var ErrTimestampFormat = errors.New("timestamp is not in YYYY-MM-DD HH:MM:SS.ffffff form")

// NoisePhrases are the boilerplate fragments that mark a line as noise.
var NoisePhrases = []string{
	"Starting to sync",
	"Starting at",
	"Sync from Master done",
	"Sync from Master started",
	"Sync into Master",
	"Stopping the Sync",
	"Ending at",
}

// Matcher tries to parse one line shape.
type Matcher struct {
	Name  string
	Match func(line string, lc LineContext) Result
}

// SyncMatcher recognizes successful sync entries.
func SyncMatcher() Matcher {
	return Matcher{Name: "sync", Match: matchSync}
}

// SkippedMatcher recognizes documents excluded from sync.
func SkippedMatcher() Matcher {
	return Matcher{Name: "skipped", Match: matchSkipped}
}

// ErrorMatcher recognizes error entries.
func ErrorMatcher() Matcher {
	return Matcher{Name: "error", Match: matchError}
}

// IsNoise reports whether a line contains one of the NoisePhrases.
func IsNoise(line string) bool {
	return noisePattern.MatchString(line)
}

func matchSync(line string, lc LineContext) Result {
	m := syncPattern.FindStringSubmatch(line)
	if m == nil {
		return Result{Status: NoMatch}
	}

	ts, err := ParseTimestamp(group(syncPattern, m, "timestamp"))
	if err != nil {
		return Result{Status: Malformed, Err: err}
	}

	cl := lc.newLine(model.LineKindSync)
	cl.Timestamp = ts
	cl.Database = group(syncPattern, m, "database")
	cl.Direction = ParseDirection(group(syncPattern, m, "direction"))
	cl.Author = group(syncPattern, m, "author")
	cl.Modification = ParseModification(group(syncPattern, m, "modification"))
	cl.DocumentID = group(syncPattern, m, "doc_id")

	return Result{Status: Matched, Line: cl}
}

func matchSkipped(line string, lc LineContext) Result {
	m := skippedPattern.FindStringSubmatch(line)
	if m == nil {
		return Result{Status: NoMatch}
	}

	ts, err := ParseTimestamp(group(skippedPattern, m, "timestamp"))
	if err != nil {
		return Result{Status: Malformed, Err: err}
	}

	cl := lc.newLine(model.LineKindSkipped)
	cl.Timestamp = ts
	cl.Database = group(skippedPattern, m, "database")
	cl.Direction = ParseDirection(group(skippedPattern, m, "direction"))
	cl.DocumentID = group(skippedPattern, m, "doc_id")
	cl.ErrorText = group(skippedPattern, m, "message")
	cl.IsSkipped = true

	return Result{Status: Matched, Line: cl}
}

func matchError(line string, lc LineContext) Result {
	m := errorPattern.FindStringSubmatch(line)
	if m == nil {
		return Result{Status: NoMatch}
	}

	ts, err := ParseTimestamp(group(errorPattern, m, "timestamp"))
	if err != nil {
		return Result{Status: Malformed, Err: err}
	}

	cl := lc.newLine(model.LineKindError)
	cl.Timestamp = ts
	cl.ErrorText = group(errorPattern, m, "message")
	cl.IsError = true

	return Result{Status: Matched, Line: cl}
}

// ParseTimestamp parses an entry timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if !timestampPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, ErrTimestampFormat)
	}
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return ts, nil
}

// ParseDirection maps a direction token to a Direction.
func ParseDirection(token string) model.Direction {
	if token == SyncFromToken {
		return model.DirectionFromMaster
	}
	return model.DirectionIntoMaster
}

// ParseModification maps a one-letter modification code.
// Unrecognized codes map to ModificationUnknown.
func ParseModification(code string) model.Modification {
	switch code {
	case "M":
		return model.ModificationModified
	case "N":
		return model.ModificationNew
	case "D":
		return model.ModificationDelete
	default:
		return model.ModificationUnknown
	}
}

func compileAlternation(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

func group(re *regexp.Regexp, m []string, name string) string {
	i := re.SubexpIndex(name)
	if i < 0 || i >= len(m) {
		return ""
	}
	return m[i]
}
