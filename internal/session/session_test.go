package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/fault"
	ports "fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
)

type recordingNotifier struct {
	actions []string
}

func (r *recordingNotifier) LedgerChanged(_ context.Context, action, _ string) error {
	r.actions = append(r.actions, action)
	return nil
}

func seeded(t *testing.T) (*Session, *memory.Store, *recordingNotifier) {
	t.Helper()
	store := memory.New()
	store.Seed([]core.Transaction{
		{
			ID: "txn-old", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Description: "old", Amount: decimal.NewFromInt(50),
			Type: core.Expense, Source: core.General,
		},
	}, core.Config{
		InitialGeneral:    decimal.NewFromInt(1000),
		MonthlyIncomeGoal: decimal.NewFromInt(2000),
	})

	notifier := &recordingNotifier{}
	sess := New(store, notifier)
	require.NoError(t, sess.Load(context.Background()))
	return sess, store, notifier
}

func TestLoadFailurePreservesState(t *testing.T) {
	sess, store, _ := seeded(t)
	before := sess.Transactions()

	store.FailNext(errors.New("sheet unreachable"))
	err := sess.Load(context.Background())
	require.Error(t, err)

	assert.True(t, sess.Loaded(), "previous load must remain valid")
	assert.Equal(t, before, sess.Transactions(), "state must be untouched on failure")
}

func TestAddRoundTrip(t *testing.T) {
	sess, _, notifier := seeded(t)

	tx, err := sess.Add(context.Background(), AddInput{
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "groceries",
		Amount:      "42,50",
		Type:        core.Expense,
		Source:      core.General,
	})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("42.5")))
	assert.NotEmpty(t, tx.ID)

	txs := sess.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, tx.ID, txs[0].ID, "list is newest first")
	assert.Equal(t, []string{"append"}, notifier.actions)

	balances := sess.Balances()
	assert.True(t, balances.General.Equal(decimal.RequireFromString("907.5")), "general = %s", balances.General)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	sess, store, notifier := seeded(t)

	_, err := sess.Add(context.Background(), AddInput{
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "bad",
		Amount:      "-5",
		Type:        core.Expense,
		Source:      core.General,
	})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.Validation))

	_, err = sess.Add(context.Background(), AddInput{
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "same fund",
		Amount:      "10",
		Type:        core.Transfer,
		Source:      core.General,
		Destination: core.General,
	})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.Validation))

	// Nothing reached the store and nothing was published.
	txs, _, loadErr := store.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Len(t, txs, 1)
	assert.Empty(t, notifier.actions)
}

func TestDelete(t *testing.T) {
	sess, _, notifier := seeded(t)

	require.NoError(t, sess.Delete(context.Background(), "txn-old"))
	assert.Empty(t, sess.Transactions())
	assert.Equal(t, []string{"delete"}, notifier.actions)

	err := sess.Delete(context.Background(), "txn-old")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.NotFound))
}

func TestSaveConfig(t *testing.T) {
	sess, _, notifier := seeded(t)

	next := sess.Config()
	next.MonthlyIncomeGoal = decimal.NewFromInt(3000)
	require.NoError(t, sess.SaveConfig(context.Background(), next))

	assert.True(t, sess.Config().MonthlyIncomeGoal.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, []string{"config"}, notifier.actions)
}

func TestRolloverPersistsBeforeApplying(t *testing.T) {
	sess, store, _ := seeded(t)
	before := sess.Config()

	store.FailNext(errors.New("write failed"))
	_, err := sess.Rollover(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, before, sess.Config(), "failed persist must not change memory")

	// The retry succeeds and applies once.
	plan, err := sess.Rollover(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "2024-03", sess.Config().LastRolloverMonth)

	// Same month again is a no-op.
	plan, err = sess.Rollover(context.Background(), time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, plan)
}

// blockingStore parks Append until released so tests can observe the
// busy flag deterministically.
type blockingStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

var _ ports.LedgerStore = (*blockingStore)(nil)

func (b *blockingStore) Append(ctx context.Context, tx core.Transaction) (int64, error) {
	close(b.entered)
	<-b.release
	return b.Store.Append(ctx, tx)
}

func TestBusyRejectsConcurrentMutation(t *testing.T) {
	store := &blockingStore{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sess := New(store, nil)
	require.NoError(t, sess.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := sess.Add(context.Background(), AddInput{
			Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			Description: "slow",
			Amount:      "10",
			Type:        core.Expense,
			Source:      core.General,
		})
		done <- err
	}()

	<-store.entered
	err := sess.Delete(context.Background(), "whatever")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.Busy))

	close(store.release)
	require.NoError(t, <-done)
}
