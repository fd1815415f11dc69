package storage

import (
	"context"
	"testing"

	"helloga/internal/model"
)

func newInitializedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "run-1"}); err == nil {
		t.Fatal("expected not initialized error")
	}
	if _, err := store.ListRuns(context.Background(), 0); err == nil {
		t.Fatal("expected not initialized error")
	}
}

func TestMemoryStoreRunRoundTripAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	runs := []model.RunRecord{
		{VersionedRecord: CurrentVersion(), ID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{VersionedRecord: CurrentVersion(), ID: "b", CreatedAtUTC: "2026-01-03T00:00:00Z"},
		{VersionedRecord: CurrentVersion(), ID: "c", CreatedAtUTC: "2026-01-02T00:00:00Z"},
	}
	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}
	if err := store.SaveRun(ctx, model.RunRecord{}); err == nil {
		t.Fatal("expected missing id error")
	}

	got, ok, err := store.GetRun(ctx, "c")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if got.CreatedAtUTC != "2026-01-02T00:00:00Z" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%v err=%v", ok, err)
	}

	listed, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "b" || listed[1].ID != "c" {
		t.Fatalf("unexpected run order: %+v", listed)
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list all runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestMemoryStoreFitnessHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	input := []float64{30, 12, 0}
	if err := store.SaveFitnessHistory(ctx, "run-1", input); err != nil {
		t.Fatalf("save history: %v", err)
	}
	input[0] = 99

	output, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted fitness history")
	}
	if len(output) != 3 || output[0] != 30 || output[2] != 0 {
		t.Fatalf("unexpected history: %+v", output)
	}
}

func TestMemoryStoreGenerationDiagnosticsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	input := []model.GenerationDiagnostics{
		{Generation: 0, BestFitness: 80, MeanFitness: 300, Diversity: 100},
		{Generation: 1, BestFitness: 60, MeanFitness: 200, Diversity: 90},
	}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", input); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	output, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted diagnostics")
	}
	if len(output) != len(input) || output[1].Diversity != input[1].Diversity {
		t.Fatalf("unexpected diagnostics: %+v", output)
	}
	if _, ok, err := store.GetGenerationDiagnostics(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing diagnostics, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreOrdersSubSecondTimestampsByInstant(t *testing.T) {
	ctx := context.Background()
	store := newInitializedMemoryStore(t)

	runs := []model.RunRecord{
		{VersionedRecord: CurrentVersion(), ID: "whole", CreatedAtUTC: "2026-10-18T10:00:00Z"},
		{VersionedRecord: CurrentVersion(), ID: "older", CreatedAtUTC: "2026-10-18T10:00:00.1Z"},
		{VersionedRecord: CurrentVersion(), ID: "newer", CreatedAtUTC: "2026-10-18T10:00:00.12Z"},
	}
	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	latest, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(latest) != 1 || latest[0].ID != "newer" {
		t.Fatalf("latest run = %+v, want newer", latest)
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 3 || all[1].ID != "older" || all[2].ID != "whole" {
		t.Fatalf("unexpected run order: %+v", all)
	}
}
