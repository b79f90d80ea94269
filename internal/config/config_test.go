package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "softseg.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearHarnessEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvData, config.EnvDataProcessed, config.EnvResults, config.EnvLog, config.EnvQC} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/data/spine-generic"
processed_dir = "/work/processed"
results_dir = "/work/results"
log_dir = "/work/log"
qc_dir = "/work/qc"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %s", resolved)
	}
	if cfg.Mask.Size != "35mm" {
		t.Fatalf("expected default mask size, got %q", cfg.Mask.Size)
	}
	if !strings.Contains(cfg.Registration.T1wParam, "bsplinesyn") {
		t.Fatalf("expected default T1w registration params, got %q", cfg.Registration.T1wParam)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected default console logging, got %q", cfg.Logging.Format)
	}
	if !cfg.SCT.QCEnabled {
		t.Fatal("QC generation should default on")
	}
}

func TestLoadRequiresPaths(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = ""
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation failure for empty paths")
	}
}

func TestValidateRequiresResultsDir(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/d"
processed_dir = "/p"
log_dir = "/l"
qc_dir = "/q"
`)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation failure for missing results dir")
	}
	if !strings.Contains(err.Error(), "paths.results_dir") {
		t.Fatalf("expected paths.results_dir in error, got %v", err)
	}
}

func TestEnvironmentOverridesPaths(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/from/file"
processed_dir = "/work/processed"
results_dir = "/work/results"
log_dir = "/work/log"
qc_dir = "/work/qc"
`)

	t.Setenv(config.EnvData, "/from/env")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Paths.DataDir != "/from/env" {
		t.Fatalf("expected harness env to win, got %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsBadMaskSize(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/d"
processed_dir = "/p"
results_dir = "/r"
log_dir = "/l"
qc_dir = "/q"

[mask]
size = "wide"
`)
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected mask size validation failure")
	}
	if !strings.Contains(err.Error(), "mask.size") {
		t.Fatalf("expected mask.size in error, got %v", err)
	}
}

func TestValidateRejectsBadRegistrationParam(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/d"
processed_dir = "/p"
results_dir = "/r"
log_dir = "/l"
qc_dir = "/q"

[registration]
t2star_param = "algo=centermass"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected registration param validation failure")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearHarnessEnv(t)
	target := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("create sample: %v", err)
	}

	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config should parse and validate: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if cfg.Paths.DataDir == "" {
		t.Fatal("sample config should set data_dir")
	}
}

func TestRunDBPathLivesInLogDir(t *testing.T) {
	clearHarnessEnv(t)
	path := writeConfig(t, `
[paths]
data_dir = "/d"
processed_dir = "/p"
results_dir = "/r"
log_dir = "/l"
qc_dir = "/q"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RunDBPath() != filepath.Join("/l", "runs.db") {
		t.Fatalf("unexpected run db path: %s", cfg.RunDBPath())
	}
}
