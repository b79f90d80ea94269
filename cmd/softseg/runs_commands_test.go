package main

import (
	"context"
	"testing"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
)

func TestRunsListShowsRecordedRuns(t *testing.T) {
	setupCLITestEnv(t)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	run, err := store.Begin(context.Background(), "uuid-1", "sub-01", "SCT v6.1", "host-a")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	run.SetCompleted()
	if err := store.Update(context.Background(), run); err != nil {
		t.Fatalf("update run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, err := runCLI(t, []string{"runs", "list"})
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "sub-01")
	requireContains(t, out, "completed")

	out, err = runCLI(t, []string{"runs", "show", "1"})
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "uuid-1")
	requireContains(t, out, "host-a")
}

func TestRunsShowUnknownID(t *testing.T) {
	setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"runs", "show", "99"}); err == nil {
		t.Fatal("expected an error for an unknown run id")
	}
}
