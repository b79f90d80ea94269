package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupCLITestEnv points HOME and the harness path variables at a
// temporary tree so commands resolve a valid configuration without
// touching the real user environment.
func setupCLITestEnv(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	dataDir := filepath.Join(base, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	t.Setenv("PATH_DATA", dataDir)
	t.Setenv("PATH_DATA_PROCESSED", filepath.Join(base, "processed"))
	t.Setenv("PATH_RESULTS", filepath.Join(base, "results"))
	t.Setenv("PATH_LOG", filepath.Join(base, "log"))
	t.Setenv("PATH_QC", filepath.Join(base, "qc"))

	return base
}

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
