package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
)

func TestNewJSONLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("pipeline step", logging.String("tool", "sct_deepseg_sc"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record); err != nil {
		t.Fatalf("parse log record: %v", err)
	}
	if record["msg"] != "pipeline step" {
		t.Fatalf("unexpected message: %v", record["msg"])
	}
	if record["tool"] != "sct_deepseg_sc" {
		t.Fatalf("unexpected tool attr: %v", record["tool"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDebugLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "filter.log")

	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "suppressed") {
		t.Fatal("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Fatal("warn record missing")
	}
}

func TestWithContextStampsSubjectAndStage(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "ctx.log")

	base, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	ctx := services.WithSubject(context.Background(), "sub-01")
	ctx = services.WithStage(ctx, "softseg")
	logging.WithContext(ctx, base).Info("averaged")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record); err != nil {
		t.Fatalf("parse record: %v", err)
	}
	if record[logging.FieldSubject] != "sub-01" {
		t.Fatalf("subject missing from record: %v", record)
	}
	if record[logging.FieldStage] != "softseg" {
		t.Fatalf("stage missing from record: %v", record)
	}
}

func TestNewForRunCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, logPath, err := logging.NewForRun("info", "json", dir, "20260831T120000")
	if err != nil {
		t.Fatalf("new run logger: %v", err)
	}
	logger.Info("started")

	if logPath == "" {
		t.Fatal("expected a per-run log path")
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("run log not created: %v", err)
	}
}
