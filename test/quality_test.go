package test

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// getProjectRoot returns the project root directory based on this test file's location.
func getProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Dir(filepath.Dir(filename))
}

// goFiles lists the module's Go files accepted by keep. Hidden, vendored,
// fixture and underscore directories are not part of the module.
func goFiles(t *testing.T, keep func(path string) bool) []string {
	t.Helper()
	root := getProjectRoot()
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk directory: %v", err)
	}
	return files
}

// grepFiles returns "file:line: pattern" for every non-comment line that
// contains one of patterns.
func grepFiles(t *testing.T, files, patterns []string) []string {
	t.Helper()
	var hits []string

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("Failed to open %s: %v", path, err)
		}

		scanner := bufio.NewScanner(f)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if strings.HasPrefix(strings.TrimSpace(line), "//") {
				continue
			}
			for _, p := range patterns {
				if strings.Contains(line, p) {
					hits = append(hits, fmt.Sprintf("%s:%d: %s", path, lineNum, p))
				}
			}
		}
		f.Close()

		if err := scanner.Err(); err != nil {
			t.Fatalf("Error scanning %s: %v", path, err)
		}
	}
	return hits
}

// TestNoSkippedTests ensures no test outside *integration_test.go skips.
// Skipped tests hide failures; tests should either pass or fail.
func TestNoSkippedTests(t *testing.T) {
	files := goFiles(t, func(path string) bool {
		return strings.HasSuffix(path, "_test.go") &&
			!strings.HasSuffix(path, "quality_test.go") &&
			!strings.HasSuffix(path, "integration_test.go")
	})
	if len(files) == 0 {
		t.Fatal("No test files found - something is wrong with test discovery")
	}

	violations := grepFiles(t, files, []string{"t.Skip(", "t.SkipNow(", "testing.Short()"})
	if len(violations) > 0 {
		t.Errorf("Found %d test skip violation(s):", len(violations))
		for _, v := range violations {
			t.Errorf("  %s", v)
		}
		t.Error("Use t.Fatalf() when a required resource is missing, or move tests that need an external service into *integration_test.go")
	}
}

// TestLibrariesDoNotPrint ensures pkg/ writes only to the writers and
// loggers it is given; stdout belongs to the CLI.
func TestLibrariesDoNotPrint(t *testing.T) {
	pkgDir := filepath.Join(getProjectRoot(), "pkg") + string(filepath.Separator)
	files := goFiles(t, func(path string) bool {
		return strings.HasPrefix(path, pkgDir) && !strings.HasSuffix(path, "_test.go")
	})
	if len(files) == 0 {
		t.Fatal("No library files found under pkg/")
	}

	violations := grepFiles(t, files, []string{"fmt.Print", "os.Stdout", "os.Stderr", "log.Print"})
	for _, v := range violations {
		t.Errorf("library writes to the process output: %s", v)
	}
}

// TestIntegrationTestsAreGated ensures every integration test file reads an
// environment variable to decide whether to run.
func TestIntegrationTestsAreGated(t *testing.T) {
	files := goFiles(t, func(path string) bool {
		return strings.HasSuffix(path, "integration_test.go")
	})

	for _, path := range files {
		if len(grepFiles(t, []string{path}, []string{"os.Getenv("})) == 0 {
			t.Errorf("%s runs unconditionally; gate it on an environment variable", path)
		}
	}
}
