package test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ccollicutt/synclog/internal/cli"
	"github.com/ccollicutt/synclog/internal/cli/commands"
	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/ingest"
)

var (
	projectRoot string
	rootOnce    sync.Once
)

const (
	yamlConfig = "testdata/configs/synclog.yaml"
	tomlConfig = "testdata/configs/synclog.toml"
)

// Totals for the files under testdata/logs.
var fixtureLines = ingest.Counters{
	Lines:       19,
	Sync:        6,
	Skipped:     2,
	Errors:      2,
	Noise:       7,
	Unparsed:    2,
	Malformed:   1,
	UnknownMods: 1,
}

// chdir changes to the project root directory for tests.
// Config files use paths relative to project root.
func chdir(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		// Get the directory containing this test file, then go up one level
		_, filename, _, _ := runtime.Caller(0)
		projectRoot = filepath.Dir(filepath.Dir(filename))
	})
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("Failed to chdir to project root: %v", err)
	}
}

// useTempStore points the store DSN at a fresh SQLite file.
func useTempStore(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "synclog.db")
	t.Setenv(config.EnvStoreDSN, dsn)
	return dsn
}

// run executes the synclog CLI in-process and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type parseReport struct {
	Summary struct {
		Mode      string          `json:"mode"`
		Files     int             `json:"files"`
		Completed int             `json:"completed"`
		Skipped   int             `json:"skipped"`
		Failed    int             `json:"failed"`
		Lines     ingest.Counters `json:"lines"`
	} `json:"summary"`
}

func parseJSON(t *testing.T, args ...string) parseReport {
	t.Helper()
	out, err := run(t, append([]string{"parse", "-o", "json"}, args...)...)
	if err != nil {
		t.Fatalf("parse failed: %v\nOutput: %s", err, out)
	}
	var report parseReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, out)
	}
	return report
}

// TestE2E_Parse_Fixtures ingests the fixture tree and checks every counter.
func TestE2E_Parse_Fixtures(t *testing.T) {
	chdir(t)
	useTempStore(t)

	report := parseJSON(t, yamlConfig)

	s := report.Summary
	if s.Mode != "pooled" {
		t.Errorf("mode = %q, want pooled", s.Mode)
	}
	if s.Files != 4 || s.Completed != 4 || s.Skipped != 0 || s.Failed != 0 {
		t.Errorf("files/completed/skipped/failed = %d/%d/%d/%d, want 4/4/0/0",
			s.Files, s.Completed, s.Skipped, s.Failed)
	}
	if s.Lines != fixtureLines {
		t.Errorf("lines = %+v, want %+v", s.Lines, fixtureLines)
	}
	if commands.ExitCode != commands.ExitOK {
		t.Errorf("ExitCode = %d, want %d", commands.ExitCode, commands.ExitOK)
	}
}

// TestE2E_Parse_SecondRunSkips checks that completed content is never re-ingested.
func TestE2E_Parse_SecondRunSkips(t *testing.T) {
	chdir(t)
	useTempStore(t)

	parseJSON(t, yamlConfig)
	report := parseJSON(t, "--mode", "cooperative", yamlConfig)

	s := report.Summary
	if s.Files != 4 || s.Skipped != 4 || s.Completed != 0 {
		t.Errorf("files/skipped/completed = %d/%d/%d, want 4/4/0", s.Files, s.Skipped, s.Completed)
	}
	if s.Lines.Lines != 0 {
		t.Errorf("second run read %d lines, want 0", s.Lines.Lines)
	}

	out, err := run(t, "status", "-o", "json", yamlConfig)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var versions []commands.VersionStatus
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("Invalid JSON output: %v\nOutput: %s", err, out)
	}
	if len(versions) != 4 {
		t.Fatalf("stored %d versions, want 4", len(versions))
	}
	classified, unparsed := 0, 0
	for _, v := range versions {
		if !v.Complete {
			t.Errorf("version %s of %s/%s is incomplete", v.ID, v.Owner, v.FileName)
		}
		classified += v.Classified
		unparsed += v.Unparsed
	}
	if classified != 10 || unparsed != 2 {
		t.Errorf("stored classified/unparsed = %d/%d, want 10/2", classified, unparsed)
	}
}

// TestE2E_Parse_StrategiesAgree runs both strategies over the same tree.
func TestE2E_Parse_StrategiesAgree(t *testing.T) {
	chdir(t)

	useTempStore(t)
	pooled := parseJSON(t, "--mode", "pooled", "--workers", "8", yamlConfig)

	useTempStore(t)
	coop := parseJSON(t, "--mode", "cooperative", yamlConfig)

	if pooled.Summary.Lines != coop.Summary.Lines {
		t.Errorf("pooled lines %+v != cooperative lines %+v", pooled.Summary.Lines, coop.Summary.Lines)
	}
	if coop.Summary.Mode != "cooperative" {
		t.Errorf("mode = %q, want cooperative", coop.Summary.Mode)
	}
}

// TestE2E_Parse_TOMLConfig uses the TOML fixture (cooperative, md5).
func TestE2E_Parse_TOMLConfig(t *testing.T) {
	chdir(t)
	useTempStore(t)

	report := parseJSON(t, tomlConfig)

	if report.Summary.Mode != "cooperative" {
		t.Errorf("mode = %q, want cooperative", report.Summary.Mode)
	}
	if report.Summary.Lines != fixtureLines {
		t.Errorf("lines = %+v, want %+v", report.Summary.Lines, fixtureLines)
	}

	out, err := run(t, "status", "-o", "json", tomlConfig)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var versions []commands.VersionStatus
	if err := json.Unmarshal([]byte(out), &versions); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	for _, v := range versions {
		if v.HashAlgorithm != "md5" || len(v.Hash) != 32 {
			t.Errorf("%s: hash %s/%q, want md5 digest", v.FileName, v.HashAlgorithm, v.Hash)
		}
	}
}

// TestE2E_Parse_ChangedFile re-ingests only the file whose content changed.
func TestE2E_Parse_ChangedFile(t *testing.T) {
	chdir(t)
	useTempStore(t)

	root := copyTree(t, filepath.Join("testdata", "logs"))
	configPath := filepath.Join(t.TempDir(), "synclog.yaml")
	content := "roots:\n  - " + root + "\nstore:\n  driver: sqlite\n  dsn: unused.db\nlogging:\n  level: error\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	parseJSON(t, configPath)

	changed := filepath.Join(root, "bob", "serverdb_20210501.log")
	f, err := os.OpenFile(changed, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("2021-05-01 09:30:00.000000 ERROR Replica id mismatch\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	report := parseJSON(t, configPath)
	s := report.Summary
	if s.Completed != 1 || s.Skipped != 3 {
		t.Errorf("completed/skipped = %d/%d, want 1/3", s.Completed, s.Skipped)
	}
	// The whole changed file is read again, not just the new line.
	if s.Lines.Lines != 6 || s.Lines.Errors != 2 {
		t.Errorf("lines = %+v, want 6 lines with 2 errors", s.Lines)
	}

	out, err := run(t, "status", "--owner", "bob", configPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "2 version(s), 2 complete, 0 incomplete") {
		t.Errorf("status output:\n%s", out)
	}
}

// TestE2E_Reset drops everything so the next run ingests again.
func TestE2E_Reset(t *testing.T) {
	chdir(t)
	useTempStore(t)

	parseJSON(t, yamlConfig)

	if _, err := run(t, "reset", yamlConfig); err == nil {
		t.Error("reset without --yes should fail")
	}

	out, err := run(t, "reset", "--yes", yamlConfig)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !strings.Contains(out, "Deleted 4 file version(s)") {
		t.Errorf("reset output = %q", out)
	}

	report := parseJSON(t, yamlConfig)
	if report.Summary.Completed != 4 {
		t.Errorf("completed after reset = %d, want 4", report.Summary.Completed)
	}
}

// TestE2E_Parse_TextOutput checks the human-readable report.
func TestE2E_Parse_TextOutput(t *testing.T) {
	chdir(t)
	useTempStore(t)

	out, err := run(t, "parse", "--verbose", yamlConfig)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	for _, want := range []string{"=== synclog Run Report ===", "Mode: pooled (3 workers)", "Duration:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestE2E_Inspect_Fixture samples a fixture file.
func TestE2E_Inspect_Fixture(t *testing.T) {
	chdir(t)

	out, err := run(t, "inspect", filepath.Join("testdata", "logs", "carol", "serverdb_20210501.log"))
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "Lines sampled: 2") {
		t.Errorf("output missing sample count:\n%s", out)
	}
	if !strings.Contains(out, "WARNING: 1 line(s) looked like entries but failed to parse") {
		t.Errorf("output missing malformed warning:\n%s", out)
	}
}

// TestE2E_Diagnose_ValidConfig tests diagnose against the fixture tree.
func TestE2E_Diagnose_ValidConfig(t *testing.T) {
	chdir(t)
	useTempStore(t)

	out, err := run(t, "diagnose", yamlConfig)
	if err != nil {
		t.Fatalf("Diagnose failed: %v\nOutput: %s", err, out)
	}

	for _, want := range []string{"Configuration Diagnostics", "[PASS] Config Syntax", "3 owner(s), 4 file(s)", "Summary:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestE2E_Diagnose_NonexistentConfig tests diagnose with missing config.
func TestE2E_Diagnose_NonexistentConfig(t *testing.T) {
	chdir(t)

	out, err := run(t, "diagnose", "nonexistent.yaml")
	if err != nil {
		t.Fatalf("Diagnose should report, not fail: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Errorf("Should report config not found:\n%s", out)
	}
}

// TestE2E_Validate_Fixture validates the fixture configs.
func TestE2E_Validate_Fixture(t *testing.T) {
	chdir(t)

	for _, cfg := range []string{yamlConfig, tomlConfig} {
		out, err := run(t, "validate", cfg)
		if err != nil {
			t.Fatalf("validate %s failed: %v", cfg, err)
		}
		if !strings.Contains(out, "Log files matched: 4") {
			t.Errorf("validate %s output:\n%s", cfg, out)
		}
	}
}

func copyTree(t *testing.T, src string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "logs")
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("Failed to copy %s: %v", src, err)
	}
	return dst
}
