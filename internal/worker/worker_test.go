package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

func testWorker(t *testing.T) (*Worker, *memory.Store, *storage.SnapshotRepository) {
	t.Helper()
	store := memory.New()
	snapshot, err := storage.NewSnapshotRepository(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	t.Cleanup(func() { snapshot.Close() })
	return New(store, snapshot, nil, time.Minute), store, snapshot
}

func TestRefreshWritesSnapshot(t *testing.T) {
	w, store, snapshot := testWorker(t)
	store.Seed([]core.Transaction{{
		ID: "txn-1", Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Description: "groceries", Amount: decimal.NewFromInt(40),
		Type: core.Expense, Source: core.General,
	}}, core.Config{InitialGeneral: decimal.NewFromInt(100)})

	if err := w.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	txs, cfg, refreshedAt, err := snapshot.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "txn-1" {
		t.Fatalf("snapshot txs = %+v", txs)
	}
	if !cfg.InitialGeneral.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("snapshot cfg = %+v", cfg)
	}
	if refreshedAt.IsZero() {
		t.Fatalf("refreshedAt not set")
	}
}

func TestRefreshRunsDueRollover(t *testing.T) {
	if time.Now().Day() < 15 {
		t.Skip("rollover is only due on or after the boundary day")
	}

	w, store, snapshot := testWorker(t)
	store.Seed(nil, core.Config{
		InitialGeneral:    decimal.NewFromInt(500),
		MonthlyIncomeGoal: decimal.NewFromInt(1000),
	})

	if err := w.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The rollover was persisted to the store, not just the snapshot.
	_, storeCfg, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	wantMonth := time.Now().Format("2006-01")
	if storeCfg.LastRolloverMonth != wantMonth {
		t.Fatalf("lastRolloverMonth = %q, want %q", storeCfg.LastRolloverMonth, wantMonth)
	}
	if !storeCfg.InitialGeneral.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("initialGeneral = %s, want 1500", storeCfg.InitialGeneral)
	}

	// And the snapshot carries the updated config.
	_, snapCfg, _, err := snapshot.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapCfg.LastRolloverMonth != wantMonth {
		t.Fatalf("snapshot lastRolloverMonth = %q", snapCfg.LastRolloverMonth)
	}

	// A second refresh must not roll over again.
	if err := w.refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	_, storeCfg, err = store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !storeCfg.InitialGeneral.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("rollover applied twice: %s", storeCfg.InitialGeneral)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, _, _ := testWorker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
