package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/fault"
)

func sample(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: id,
		Amount:      decimal.NewFromInt(10),
		Type:        core.Expense,
		Source:      core.General,
	}
}

func TestAppendLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	row, err := s.Append(ctx, sample("txn-1"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if row < 2 {
		t.Fatalf("rows start after the header, got %d", row)
	}

	txs, _, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "txn-1" {
		t.Fatalf("unexpected load result: %+v", txs)
	}
	if txs[0].RowIndex != 2 {
		t.Fatalf("rowIndex = %d, want 2", txs[0].RowIndex)
	}

	if err := s.Delete(ctx, "txn-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "txn-1"); !fault.Is(err, fault.NotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAppendValidates(t *testing.T) {
	s := New()
	bad := sample("txn-1")
	bad.Amount = decimal.Zero
	if _, err := s.Append(context.Background(), bad); !fault.Is(err, fault.Validation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

func TestFailNextIsOneShot(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	s.FailNext(boom)
	if _, _, err := s.Load(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected armed failure, got %v", err)
	}
	if _, _, err := s.Load(ctx); err != nil {
		t.Fatalf("failure should be one-shot, got %v", err)
	}
}

func TestSaveConfig(t *testing.T) {
	ctx := context.Background()
	s := New()
	cfg := core.Config{InitialGeneral: decimal.NewFromInt(77)}
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	_, got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.InitialGeneral.Equal(cfg.InitialGeneral) {
		t.Fatalf("config not persisted: %+v", got)
	}
}
