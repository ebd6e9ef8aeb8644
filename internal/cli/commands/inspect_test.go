package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/inspect"
)

func TestNewInspectCommand(t *testing.T) {
	cmd := NewInspectCommand()

	if cmd.Use != "inspect <log-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	for _, flag := range []string{"output", "sample", "write-config"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestRunInspect_MissingFile(t *testing.T) {
	_, err := execute(t, NewInspectCommand(), "/nonexistent/serverdb_sync.log")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestRunInspect_Text(t *testing.T) {
	root := writeLogTree(t, "alice")
	logPath := filepath.Join(root, "alice", "serverdb_sync.log")

	out, err := execute(t, NewInspectCommand(), logPath)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	for _, want := range []string{"=== Sync Log Inspection ===", "Lines sampled: 6", "sync", "unparsed", "Coverage: 83.3%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Tip:") {
		t.Errorf("unexpected tip for a recognized file:\n%s", out)
	}
}

func TestRunInspect_JSON(t *testing.T) {
	root := writeLogTree(t, "alice")
	logPath := filepath.Join(root, "alice", "serverdb_sync.log")

	out, err := execute(t, NewInspectCommand(), "-o", "json", "-n", "2", logPath)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var report inspect.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if report.SampledLines != 2 {
		t.Errorf("SampledLines = %d, want 2", report.SampledLines)
	}
	if report.Count(inspect.ShapeNoise) != 1 || report.Count(inspect.ShapeSync) != 1 {
		t.Errorf("Counts = %+v", report.Counts)
	}
}

func TestRunInspect_UnknownOutput(t *testing.T) {
	root := writeLogTree(t, "alice")
	logPath := filepath.Join(root, "alice", "serverdb_sync.log")

	if _, err := execute(t, NewInspectCommand(), "-o", "xml", logPath); err == nil {
		t.Error("Expected error for unknown output format")
	}
}

func TestOutputInspectText_Unrecognized(t *testing.T) {
	report := inspect.New().SampleLines([]string{"hello", "world"})

	var buf bytes.Buffer
	if err := outputInspectText(&buf, report); err != nil {
		t.Fatalf("outputInspectText failed: %v", err)
	}
	if !strings.Contains(buf.String(), "may not be a sync log file") {
		t.Errorf("missing tip:\n%s", buf.String())
	}
}

func TestOutputInspectText_Malformed(t *testing.T) {
	report := inspect.New().SampleLines([]string{
		"2021-13-45 99:00:00.000000 INFO [acct] (SYNC FROM) Author[alice] Mod:'N' Doc ID:doc42",
	})

	var buf bytes.Buffer
	if err := outputInspectText(&buf, report); err != nil {
		t.Fatalf("outputInspectText failed: %v", err)
	}
	if !strings.Contains(buf.String(), "failed to parse") {
		t.Errorf("missing malformed warning:\n%s", buf.String())
	}
}

func TestRunInspect_WriteConfig(t *testing.T) {
	root := writeLogTree(t, "alice")
	logPath := filepath.Join(root, "alice", "serverdb_sync.log")
	configPath := filepath.Join(t.TempDir(), "synclog.yaml")

	out, err := execute(t, NewInspectCommand(), "--write-config", configPath, logPath)
	if err != nil {
		t.Fatalf("inspect with write-config failed: %v", err)
	}
	if !strings.Contains(out, "Wrote starter config to: "+configPath) {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.Load(context.Background(), configPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if len(cfg.Roots) != 1 || cfg.Roots[0] != root {
		t.Errorf("Roots = %v, want [%s]", cfg.Roots, root)
	}
	if cfg.Ingest.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Ingest.BatchSize)
	}

	// Second write must not overwrite
	if _, err := execute(t, NewInspectCommand(), "--write-config", configPath, logPath); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateID(t *testing.T) {
	if got := truncateID("0123456789abcdef", 8); got != "01234567" {
		t.Errorf("truncateID() = %q", got)
	}
	if got := truncateID("abc", 8); got != "abc" {
		t.Errorf("truncateID() = %q", got)
	}
}

func TestGenerateStarterConfig_UsesDefaults(t *testing.T) {
	content := generateStarterConfig(filepath.Join(t.TempDir(), "bob", "serverdb_sync.log"))

	for _, want := range []string{"serverdb_sync.log", "(here: bob)", "driver: sqlite", "mode: pooled", "hash: sha256"} {
		if !strings.Contains(content, want) {
			t.Errorf("starter config missing %q:\n%s", want, content)
		}
	}
}
