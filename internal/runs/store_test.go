package runs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
)

func openStore(t *testing.T) *runs.Store {
	t.Helper()
	store, err := runs.OpenPath(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestBeginAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "uuid-1", "sub-01", "5.8", "worker01")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected assigned run id")
	}
	if run.Status != runs.StatusRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}
	if run.Subject != "sub-01" || run.SCTVersion != "5.8" || run.Host != "worker01" {
		t.Fatalf("unexpected run fields: %+v", run)
	}
	if run.FinishedAt != nil {
		t.Fatal("new run should not be finished")
	}
}

func TestUpdateLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "uuid-2", "sub-02", "5.8", "host")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	run.SetStage("registration")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("update stage: %v", err)
	}

	run.SetFailed("sct: register: exit status 1", "external_tool")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != runs.StatusFailed {
		t.Fatalf("expected failed status, got %s", got.Status)
	}
	if got.Stage != "registration" {
		t.Fatalf("expected stage to persist, got %q", got.Stage)
	}
	if got.ErrorCategory != "external_tool" {
		t.Fatalf("expected error category, got %q", got.ErrorCategory)
	}
	if got.FinishedAt == nil {
		t.Fatal("failed run should carry a finish time")
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "uuid-3", "sub-03", "5.8", "host")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	run.Status = runs.Status("paused")
	if err := store.Update(ctx, run); err == nil {
		t.Fatal("expected invalid status rejection")
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetByID(context.Background(), 999); !errors.Is(err, runs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndBySubject(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i, subject := range []string{"sub-01", "sub-02", "sub-01"} {
		run, err := store.Begin(ctx, string(rune('a'+i)), subject, "5.8", "host")
		if err != nil {
			t.Fatalf("begin run %d: %v", i, err)
		}
		run.SetCompleted()
		if err := store.Update(ctx, run); err != nil {
			t.Fatalf("complete run %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].ID < all[1].ID {
		t.Fatal("expected most recent run first")
	}

	forSubject, err := store.BySubject(ctx, "sub-01")
	if err != nil {
		t.Fatalf("by subject: %v", err)
	}
	if len(forSubject) != 2 {
		t.Fatalf("expected 2 runs for sub-01, got %d", len(forSubject))
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)
	run := runs.Run{StartedAt: start, FinishedAt: &end}
	if run.Duration(time.Now()) != 42*time.Minute {
		t.Fatalf("unexpected duration: %s", run.Duration(time.Now()))
	}

	inflight := runs.Run{StartedAt: start}
	if inflight.Duration(start.Add(time.Minute)) != time.Minute {
		t.Fatal("in-flight duration should measure against now")
	}
}
