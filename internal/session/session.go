// Package session owns one user's in-memory ledger state and
// serializes the operations against the remote store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/fault"
	"fintrack/internal/ledger"
	"fintrack/internal/period"
	ports "fintrack/internal/sheets"
)

// Notifier publishes ledger-change events after successful mutations.
// A nil Notifier disables publishing.
type Notifier interface {
	LedgerChanged(ctx context.Context, action, txID string) error
}

// Session holds the transaction list and config for one user's
// spreadsheet. Derived views are recomputed from this state on demand;
// nothing derived is ever persisted.
type Session struct {
	store  ports.LedgerStore
	events Notifier

	mu     sync.RWMutex
	txs    []core.Transaction
	cfg    core.Config
	loaded bool

	// busy serializes user-triggered mutations. It is a flag, not a
	// queue: a second mutation while one is in flight fails fast.
	busyMu sync.Mutex
	busy   bool
}

func New(store ports.LedgerStore, events Notifier) *Session {
	return &Session{store: store, events: events}
}

// acquire flips the busy flag, failing when a mutation is in flight.
func (s *Session) acquire() error {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if s.busy {
		return fault.New(fault.Busy, "another operation is in flight")
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.busyMu.Lock()
	s.busy = false
	s.busyMu.Unlock()
}

// Load fetches the full ledger. On failure the previously loaded
// in-memory state is preserved untouched.
func (s *Session) Load(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	txs, cfg, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	sortByDateDesc(txs)

	s.mu.Lock()
	s.txs = txs
	s.cfg = cfg
	s.loaded = true
	s.mu.Unlock()

	slog.InfoContext(ctx, "Ledger loaded", "transactions", len(txs))
	return nil
}

// Loaded reports whether a Load has succeeded for this session.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// AddInput carries the user-entered fields for a new transaction.
type AddInput struct {
	Date        time.Time
	Description string
	Amount      string
	Type        core.TransactionType
	Source      core.FundSource
	Destination core.FundSource
}

// Add validates, appends to the remote store and then updates local
// state. Validation failures never reach the store.
func (s *Session) Add(ctx context.Context, in AddInput) (core.Transaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, fault.Wrap(fault.Validation, err, "invalid amount %q", in.Amount)
	}
	tx := core.Transaction{
		ID:          core.NewTransactionID(),
		Date:        in.Date,
		Description: in.Description,
		Amount:      amount,
		Type:        in.Type,
		Source:      in.Source,
	}
	if in.Type == core.Transfer {
		tx.Destination = in.Destination
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fault.Wrap(fault.Validation, err, "invalid transaction")
	}

	if err := s.acquire(); err != nil {
		return core.Transaction{}, err
	}
	defer s.release()

	row, err := s.store.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	tx.RowIndex = row

	s.mu.Lock()
	s.txs = append(s.txs, tx)
	sortByDateDesc(s.txs)
	s.mu.Unlock()

	s.notify(ctx, "append", tx.ID)
	return tx, nil
}

// Delete removes a transaction by id, remotely first and then locally.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.RLock()
	found := false
	for _, tx := range s.txs {
		if tx.ID == id {
			found = true
			break
		}
	}
	s.mu.RUnlock()
	if !found {
		return fault.New(fault.NotFound, "transaction %s not found", id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.mu.Lock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(ctx, "delete", id)
	return nil
}

// SaveConfig persists the settings and updates local state on success.
func (s *Session) SaveConfig(ctx context.Context, cfg core.Config) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.notify(ctx, "config", "")
	return nil
}

// Rollover runs the once-per-month surplus rollover for the reference
// date. It persists the config update first and applies it to memory
// only after the write succeeds, so a failed write can be retried
// without double-applying. Returns the executed plan, or nil when no
// rollover was due.
func (s *Session) Rollover(ctx context.Context, ref time.Time) (*period.Rollover, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	s.mu.RLock()
	plan := period.Plan(s.cfg, s.txs, ref)
	s.mu.RUnlock()
	if plan == nil {
		return nil, nil
	}

	if err := s.store.SaveConfig(ctx, plan.Config); err != nil {
		return nil, fmt.Errorf("persist rollover: %w", err)
	}

	s.mu.Lock()
	s.cfg = plan.Config
	s.mu.Unlock()

	if plan.Applies() {
		slog.InfoContext(ctx, "Rollover applied",
			"month", plan.Month, "surplus", plan.Surplus.String())
	} else {
		slog.InfoContext(ctx, "Rollover month marked, no surplus", "month", plan.Month)
	}
	s.notify(ctx, "config", "")
	return plan, nil
}

func (s *Session) notify(ctx context.Context, action, txID string) {
	if s.events == nil {
		return
	}
	if err := s.events.LedgerChanged(ctx, action, txID); err != nil {
		// Publishing is best-effort; the mutation already succeeded.
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"action", action, "tx_id", txID, "error", err)
	}
}

// Transactions returns a copy of the loaded list, newest first.
func (s *Session) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Config returns the current configuration.
func (s *Session) Config() core.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Balances folds the full ledger over the initial balances.
func (s *Session) Balances() core.Balances {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.ComputeBalances(s.txs, s.cfg)
}

// PeriodStats reports usage for the budget period containing ref.
func (s *Session) PeriodStats(ref time.Time) core.PeriodStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return period.Stats(s.txs, period.Current(ref), s.cfg.MonthlyIncomeGoal)
}

// Monthly returns the per-month chart buckets.
func (s *Session) Monthly() []core.MonthlyData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.GroupByMonth(s.txs)
}

// Daily returns the per-day expense buckets for a "YYYY-MM" month.
func (s *Session) Daily(month string) []core.DailyData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.GroupByDay(s.txs, month)
}

// MonthSummary totals one calendar month.
func (s *Session) MonthSummary(month string) core.MonthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.SummarizeMonth(s.txs, month)
}

// Months lists the distinct month keys present, newest first.
func (s *Session) Months() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.Months(s.txs)
}

func sortByDateDesc(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}
