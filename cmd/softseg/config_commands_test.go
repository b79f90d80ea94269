package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected an error when the target already exists")
	}
}

func TestConfigShowPrintsResolvedPaths(t *testing.T) {
	base := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, filepath.Join(base, "data"))
	requireContains(t, out, "[registration]")
}
