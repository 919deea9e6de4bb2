package period

import (
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Rollover describes the config update that closes out the previous
// budget period. It is a pure plan: the caller persists Config as one
// batch write and only then applies it to in-memory state.
type Rollover struct {
	// Month is the "YYYY-MM" being marked as processed.
	Month string
	// Surplus is goal minus previous-period usage. Only a positive
	// surplus moves money; zero or negative still marks the month so
	// the check does not retrigger.
	Surplus decimal.Decimal
	// Config is the updated configuration to persist.
	Config core.Config
}

// Applies reports whether the plan changes the general fund.
func (r *Rollover) Applies() bool {
	return r.Surplus.IsPositive()
}

// Plan decides whether a rollover is due at the reference date and, if
// so, returns the resulting config update. It returns nil when the day
// of month is before the period boundary or the month has already been
// processed, which makes the transition idempotent per calendar month.
func Plan(cfg core.Config, txs []core.Transaction, ref time.Time) *Rollover {
	if ref.Day() < BoundaryDay {
		return nil
	}
	month := MonthKey(ref)
	if cfg.LastRolloverMonth == month {
		return nil
	}

	prev := Previous(ref)
	stats := Stats(txs, prev, cfg.MonthlyIncomeGoal)
	surplus := cfg.MonthlyIncomeGoal.Sub(stats.TotalUsed)

	next := cfg
	next.LastRolloverMonth = month
	if surplus.IsPositive() {
		next.InitialGeneral = next.InitialGeneral.Add(surplus)
	}

	return &Rollover{Month: month, Surplus: surplus, Config: next}
}
