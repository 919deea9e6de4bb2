// Package memory is an in-memory LedgerStore used for tests and local
// development without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/fault"
	ports "fintrack/internal/sheets"
)

type Store struct {
	mu  sync.Mutex
	txs []core.Transaction
	cfg core.Config

	// FailNext makes the next operation fail with the given error.
	// Tests use it to exercise failure paths.
	failNext error
}

var _ ports.LedgerStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed replaces the stored state.
func (s *Store) Seed(txs []core.Transaction, cfg core.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
	s.cfg = cfg
}

// FailNext arms a one-shot error returned by the next store call.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) Load(_ context.Context) ([]core.Transaction, core.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, core.Config{}, err
	}
	txs := make([]core.Transaction, len(s.txs))
	copy(txs, s.txs)
	for i := range txs {
		txs[i].RowIndex = int64(i) + 2
	}
	return txs, s.cfg, nil
}

func (s *Store) Append(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fault.Wrap(fault.Validation, err, "invalid transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	s.txs = append(s.txs, tx)
	return int64(len(s.txs)) + 1, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fault.New(fault.NotFound, "transaction %s not found", id)
}

func (s *Store) SaveConfig(_ context.Context, cfg core.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}
