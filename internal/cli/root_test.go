package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	want := []string{"parse", "inspect", "diagnose", "status", "reset", "validate", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	if cmd.PersistentFlags().Lookup("env-file") == nil {
		t.Error("missing env-file flag")
	}
}

func TestNewRootCommand_LoadsEnvFile(t *testing.T) {
	const key = "SYNCLOG_ROOT_TEST_VALUE"
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte(key+"=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile, "version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}
	if out.String() != "synclog dev\n" {
		t.Errorf("output = %q", out.String())
	}
}
