// Package worker keeps the SQLite snapshot in sync with the
// spreadsheet. It refreshes on ledger-change events from the broker and
// on a periodic tick, and runs the monthly rollover when one is due.
package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/period"
	ports "fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Consumer is the broker side the worker needs. Satisfied by
// *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, handle func(context.Context, *amqp.LedgerEvent) error) error
}

type Worker struct {
	store    ports.LedgerStore
	snapshot *storage.SnapshotRepository
	consumer Consumer
	interval time.Duration
}

// New builds a worker. The consumer is optional; without one the worker
// refreshes on the tick alone.
func New(store ports.LedgerStore, snapshot *storage.SnapshotRepository, consumer Consumer, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Worker{store: store, snapshot: snapshot, consumer: consumer, interval: interval}
}

// Run blocks until the context is cancelled. An initial refresh runs
// immediately so a fresh deployment has a snapshot before the first
// tick.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Initial snapshot refresh failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.refresh(ctx); err != nil {
					slog.ErrorContext(ctx, "Scheduled snapshot refresh failed", "error", err)
				}
			}
		}
	})

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.Consume(ctx, w.handleEvent)
		})
	}

	return g.Wait()
}

// handleEvent refreshes the snapshot for any ledger change. The event
// body is only a hint; the refresh always re-reads the full ledger so
// dropped or reordered events cannot corrupt the snapshot.
func (w *Worker) handleEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Ledger event received",
		"action", evt.Action, "tx_id", evt.TxID, "spreadsheet_id", evt.SpreadsheetID)
	return w.refresh(ctx)
}

// refresh reloads the ledger, applies a due rollover and rewrites the
// snapshot.
func (w *Worker) refresh(ctx context.Context) error {
	txs, cfg, err := w.store.Load(ctx)
	if err != nil {
		return err
	}

	if plan := period.Plan(cfg, txs, time.Now()); plan != nil {
		if err := w.store.SaveConfig(ctx, plan.Config); err != nil {
			slog.ErrorContext(ctx, "Rollover persist failed", "month", plan.Month, "error", err)
		} else {
			cfg = plan.Config
			if plan.Applies() {
				slog.InfoContext(ctx, "Rollover applied",
					"month", plan.Month, "surplus", plan.Surplus.String())
			} else {
				slog.InfoContext(ctx, "Rollover month marked, no surplus", "month", plan.Month)
			}
		}
	}

	if err := w.snapshot.Replace(ctx, txs, cfg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Snapshot refreshed", "transactions", len(txs))
	return nil
}
