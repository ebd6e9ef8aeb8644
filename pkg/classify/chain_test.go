package classify

import (
	"errors"
	"testing"
	"time"

	"github.com/ccollicutt/synclog/pkg/model"
)

func testVersion() *model.FileVersion {
	return &model.FileVersion{
		ID:       "v-1",
		Owner:    "alice",
		FileName: "serverdb_sync.log",
	}
}

func TestChain_SyncEntry(t *testing.T) {
	line := "2021-05-01 10:00:00.123456 INFO [acct] (SYNC FROM) Author[alice] Mod:'N' Doc ID:doc42"

	out := New().Classify(line, LineContext{Version: testVersion(), LineNum: 7})

	if out.Kind != OutcomeClassified {
		t.Fatalf("Kind = %v, want classified", out.Kind)
	}
	cl := out.Classified
	if cl.Kind != model.LineKindSync {
		t.Errorf("LineKind = %s, want sync", cl.Kind)
	}
	if cl.Direction != model.DirectionFromMaster {
		t.Errorf("Direction = %s, want FROM-MASTER", cl.Direction)
	}
	if cl.Author != "alice" {
		t.Errorf("Author = %q, want alice", cl.Author)
	}
	if cl.Modification != model.ModificationNew {
		t.Errorf("Modification = %s, want NEW", cl.Modification)
	}
	if cl.DocumentID != "doc42" {
		t.Errorf("DocumentID = %q, want doc42", cl.DocumentID)
	}
	if cl.Database != "acct" {
		t.Errorf("Database = %q, want acct", cl.Database)
	}
	if cl.IsError || cl.IsSkipped {
		t.Errorf("flags = error:%v skipped:%v, want both false", cl.IsError, cl.IsSkipped)
	}
	if cl.ErrorText != "" {
		t.Errorf("ErrorText = %q, want empty", cl.ErrorText)
	}

	want := time.Date(2021, 5, 1, 10, 0, 0, 123456000, time.UTC)
	if !cl.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", cl.Timestamp, want)
	}
	if cl.FileVersionID != "v-1" || cl.Owner != "alice" || cl.LineNum != 7 {
		t.Errorf("context not propagated: %+v", cl)
	}
	if len(out.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", out.Diagnostics)
	}
}

func TestChain_ErrorEntry(t *testing.T) {
	out := New().Classify("2021-05-01 10:00:01.000000 ERROR disk full", LineContext{LineNum: 1})

	if out.Kind != OutcomeClassified {
		t.Fatalf("Kind = %v, want classified", out.Kind)
	}
	cl := out.Classified
	if !cl.IsError || cl.IsSkipped {
		t.Errorf("flags = error:%v skipped:%v, want error only", cl.IsError, cl.IsSkipped)
	}
	if cl.ErrorText != "disk full" {
		t.Errorf("ErrorText = %q, want %q", cl.ErrorText, "disk full")
	}
	if cl.Direction != "" || cl.Author != "" || cl.Modification != "" || cl.DocumentID != "" || cl.Database != "" {
		t.Errorf("sync-only fields should be unset: %+v", cl)
	}
}

func TestChain_SkippedEntry(t *testing.T) {
	line := "2021-05-01 10:00:02.5 INFO [acct] (SYNC INTO) [Skipped].locked by user Doc ID:doc7"

	out := New().Classify(line, LineContext{LineNum: 3})

	if out.Kind != OutcomeClassified {
		t.Fatalf("Kind = %v, want classified", out.Kind)
	}
	cl := out.Classified
	if cl.Kind != model.LineKindSkipped || !cl.IsSkipped || cl.IsError {
		t.Errorf("unexpected shape: %+v", cl)
	}
	if cl.Direction != model.DirectionIntoMaster {
		t.Errorf("Direction = %s, want INTO-MASTER", cl.Direction)
	}
	if cl.ErrorText != "locked by user" {
		t.Errorf("ErrorText = %q, want %q", cl.ErrorText, "locked by user")
	}
	if cl.DocumentID != "doc7" {
		t.Errorf("DocumentID = %q, want doc7", cl.DocumentID)
	}
	if cl.Author != "" || cl.Modification != "" {
		t.Errorf("author/modification should be unset: %+v", cl)
	}
}

func TestChain_Noise(t *testing.T) {
	lines := []string{
		"Starting to sync with Master",
		"2021-05-01 10:00:00.000000 INFO Sync from Master done",
		"Stopping the Sync",
		"Ending at 10:00",
	}

	c := New()
	for _, line := range lines {
		out := c.Classify(line, LineContext{LineNum: 1})
		if out.Kind != OutcomeNoise {
			t.Errorf("Classify(%q) = %v, want noise", line, out.Kind)
		}
		if out.Record() != nil {
			t.Errorf("Classify(%q) produced a record", line)
		}
	}
}

func TestChain_Unparsed(t *testing.T) {
	line := "something completely different "

	out := New().Classify(line, LineContext{Version: testVersion(), LineNum: 9})

	if out.Kind != OutcomeUnparsed {
		t.Fatalf("Kind = %v, want unparsed", out.Kind)
	}
	if out.Unparsed.Text != line {
		t.Errorf("Text = %q, want verbatim %q", out.Unparsed.Text, line)
	}
	if out.Unparsed.FileVersionID != "v-1" || out.Unparsed.LineNum != 9 {
		t.Errorf("context not propagated: %+v", out.Unparsed)
	}
	if _, ok := out.Record().(*model.UnparsedLine); !ok {
		t.Errorf("Record() = %T, want *model.UnparsedLine", out.Record())
	}
}

func TestChain_MalformedFallsThrough(t *testing.T) {
	line := "2021-13-45 99:00:00.0 INFO [acct] (SYNC FROM) Author[bob] Mod:'M' Doc ID:d1"

	out := New().Classify(line, LineContext{Version: testVersion(), LineNum: 4})

	if out.Kind != OutcomeUnparsed {
		t.Fatalf("Kind = %v, want unparsed", out.Kind)
	}
	if len(out.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %d, want 1", len(out.Diagnostics))
	}
	d := out.Diagnostics[0]
	if d.Matcher != "sync" || d.LineNum != 4 || d.Line != line || d.FileName != "serverdb_sync.log" {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	if d.Err == nil {
		t.Error("diagnostic should carry the parse error")
	}
}

func TestChain_TimestampFormatIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		matcher string
	}{
		{"no fraction", "2021-05-01 10:00:00 INFO [acct] (SYNC FROM) Author[alice] Mod:'N' Doc ID:doc42", "sync"},
		{"ten digit fraction", "2021-05-01 10:00:00.1234567890 INFO [acct] (SYNC FROM) Author[alice] Mod:'N' Doc ID:doc42", "sync"},
		{"comma separator", "2021-05-01 10:00:00,123456 ERROR disk full", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := New().Classify(tt.line, LineContext{Version: testVersion(), LineNum: 1})

			if out.Kind != OutcomeUnparsed {
				t.Fatalf("Kind = %v, want unparsed", out.Kind)
			}
			if out.Unparsed.Text != tt.line {
				t.Errorf("Text = %q, want %q", out.Unparsed.Text, tt.line)
			}
			if len(out.Diagnostics) != 1 {
				t.Fatalf("Diagnostics = %d, want 1", len(out.Diagnostics))
			}
			if d := out.Diagnostics[0]; d.Matcher != tt.matcher || !errors.Is(d.Err, ErrTimestampFormat) {
				t.Errorf("diagnostic = %+v, want %s matcher with ErrTimestampFormat", d, tt.matcher)
			}
		})
	}
}

func TestChain_MalformedThenNoise(t *testing.T) {
	// A malformed error entry that also carries a noise phrase is dropped.
	line := "yesterday ERROR Stopping the Sync"

	out := New().Classify(line, LineContext{LineNum: 1})

	if out.Kind != OutcomeNoise {
		t.Fatalf("Kind = %v, want noise", out.Kind)
	}
	if len(out.Diagnostics) != 1 || out.Diagnostics[0].Matcher != "error" {
		t.Errorf("Diagnostics = %+v, want one from error matcher", out.Diagnostics)
	}
}

func TestChain_FirstMatchWins(t *testing.T) {
	var calls []string
	record := func(name string, status Status) Matcher {
		return Matcher{Name: name, Match: func(line string, lc LineContext) Result {
			calls = append(calls, name)
			if status == Matched {
				return Result{Status: Matched, Line: lc.newLine(model.LineKindSync)}
			}
			return Result{Status: status}
		}}
	}

	c := NewChain(record("a", NoMatch), record("b", Matched), record("c", Matched))
	out := c.Classify("anything", LineContext{})

	if out.Kind != OutcomeClassified {
		t.Fatalf("Kind = %v, want classified", out.Kind)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("calls = %v, want [a b]", calls)
	}
}

func TestChain_SyncNeverFallsThrough(t *testing.T) {
	// Contains both " ERROR " and a noise phrase.
	line := "2021-05-01 10:00:00.000001 INFO [db] (SYNC INTO) Author[x ERROR y] Mod:'D' Doc ID:Starting to sync"

	out := New().Classify(line, LineContext{})

	if out.Kind != OutcomeClassified || out.Classified.Kind != model.LineKindSync {
		t.Fatalf("got %v, want sync classification", out.Kind)
	}
	if out.Classified.Author != "x ERROR y" {
		t.Errorf("Author = %q", out.Classified.Author)
	}
	if out.Classified.Modification != model.ModificationDelete {
		t.Errorf("Modification = %s, want DELETE", out.Classified.Modification)
	}
}

func TestChain_Matchers(t *testing.T) {
	got := New().Matchers()
	want := []string{"sync", "skipped", "error"}
	if len(got) != len(want) {
		t.Fatalf("Matchers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Matchers()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
