package classify

import (
	"testing"
	"time"

	"github.com/ccollicutt/synclog/pkg/model"
)

func TestParseModification(t *testing.T) {
	tests := []struct {
		code string
		want model.Modification
	}{
		{"M", model.ModificationModified},
		{"N", model.ModificationNew},
		{"D", model.ModificationDelete},
		{"X", model.ModificationUnknown},
		{"", model.ModificationUnknown},
		{"m", model.ModificationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ParseModification(tt.code); got != tt.want {
				t.Errorf("ParseModification(%q) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	if got := ParseDirection("SYNC FROM"); got != model.DirectionFromMaster {
		t.Errorf("ParseDirection(SYNC FROM) = %s", got)
	}
	for _, token := range []string{"SYNC INTO", "sync from", "PUSH", ""} {
		if got := ParseDirection(token); got != model.DirectionIntoMaster {
			t.Errorf("ParseDirection(%q) = %s, want INTO-MASTER", token, got)
		}
	}
}

func TestSyncMatcher_UnknownCodeStillMatches(t *testing.T) {
	line := "2021-05-01 10:00:00.000000 INFO [acct] (SYNC FROM) Author[a] Mod:'Z' Doc ID:d"

	res := SyncMatcher().Match(line, LineContext{})

	if res.Status != Matched {
		t.Fatalf("Status = %v, want matched", res.Status)
	}
	if res.Line.Modification != model.ModificationUnknown {
		t.Errorf("Modification = %s, want UNKNOWN", res.Line.Modification)
	}
}

func TestMatchers_Status(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		line    string
		want    Status
	}{
		{"sync ok", SyncMatcher(), "2021-05-01 10:00:00.1 INFO [a] (SYNC FROM) Author[b] Mod:'M' Doc ID:c", Matched},
		{"sync bad timestamp", SyncMatcher(), "now INFO [a] (SYNC FROM) Author[b] Mod:'M' Doc ID:c", Malformed},
		{"sync missing quote", SyncMatcher(), "2021-05-01 10:00:00.1 INFO [a] (SYNC FROM) Author[b] Mod:M Doc ID:c", NoMatch},
		{"skipped ok", SkippedMatcher(), "2021-05-01 10:00:00.1 INFO [a] (SYNC FROM) [Skipped].why Doc ID:c", Matched},
		{"skipped on sync line", SkippedMatcher(), "2021-05-01 10:00:00.1 INFO [a] (SYNC FROM) Author[b] Mod:'M' Doc ID:c", NoMatch},
		{"error ok", ErrorMatcher(), "2021-05-01 10:00:00.1 ERROR boom", Matched},
		{"error bad timestamp", ErrorMatcher(), "boot ERROR boom", Malformed},
		{"error lowercase", ErrorMatcher(), "2021-05-01 10:00:00.1 error boom", NoMatch},
		{"empty line", ErrorMatcher(), "", NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.matcher.Match(tt.line, LineContext{})
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v (err=%v)", res.Status, tt.want, res.Err)
			}
			if res.Status == Malformed && res.Err == nil {
				t.Error("malformed result without error")
			}
		})
	}
}

func TestIsNoise(t *testing.T) {
	for _, phrase := range NoisePhrases {
		if !IsNoise("prefix " + phrase + " suffix") {
			t.Errorf("IsNoise should match %q", phrase)
		}
	}
	if IsNoise("2021-05-01 10:00:00.1 INFO nothing to see") {
		t.Error("IsNoise matched an ordinary line")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		wantNs  int
	}{
		{"2021-05-01 10:00:00.123456", false, 123456000},
		{"2021-05-01 10:00:00.5", false, 500000000},
		{"2021-05-01 10:00:00", true, 0},
		{"2021-05-01 10:00:00.1234567", true, 0},
		{"2021-05-01 10:00:00,123456", true, 0},
		{"2021-05-01T10:00:00.123456", true, 0},
		{"2021-13-45 10:00:00.000000", true, 0},
		{" 2021-05-01 10:00:00.123456", true, 0},
	}

	for _, tt := range tests {
		ts, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && (ts.Nanosecond() != tt.wantNs || ts.Location() != time.UTC) {
			t.Errorf("ParseTimestamp(%q) = %v", tt.in, ts)
		}
	}
}
