// Package period implements the 15th-to-15th budget period and the
// monthly rollover of unspent budget.
package period

import (
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// BoundaryDay is the day of month on which a budget period starts.
const BoundaryDay = 15

// Period is a half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func boundary(year int, month time.Month, loc *time.Location) time.Time {
	// time.Date normalizes out-of-range months, so month±1 is safe
	// across year boundaries.
	return time.Date(year, month, BoundaryDay, 0, 0, 0, 0, loc)
}

// Current returns the budget period containing the reference date.
// The reference date is an input, not wall clock, so callers can
// backdate and tests can pin it.
func Current(ref time.Time) Period {
	y, m, d := ref.Date()
	if d < BoundaryDay {
		return Period{Start: boundary(y, m-1, ref.Location()), End: boundary(y, m, ref.Location())}
	}
	return Period{Start: boundary(y, m, ref.Location()), End: boundary(y, m+1, ref.Location())}
}

// Previous returns the budget period immediately before Current(ref).
func Previous(ref time.Time) Period {
	cur := Current(ref)
	y, m, _ := cur.Start.Date()
	return Period{Start: boundary(y, m-1, ref.Location()), End: cur.Start}
}

// MonthKey formats the reference date's calendar month as "YYYY-MM".
func MonthKey(ref time.Time) string {
	return ref.Format("2006-01")
}

// Stats folds the transactions that fall inside the period into usage
// figures against the monthly goal. Usage counts expenses from either
// fund plus transfers out of the general fund.
func Stats(txs []core.Transaction, p Period, goal decimal.Decimal) core.PeriodStats {
	totalUsed := decimal.Zero
	for _, tx := range txs {
		if !p.Contains(tx.Date) {
			continue
		}
		switch {
		case tx.Type == core.Expense:
			totalUsed = totalUsed.Add(tx.Amount)
		case tx.Type == core.Transfer && tx.Source == core.General:
			totalUsed = totalUsed.Add(tx.Amount)
		}
	}

	stats := core.PeriodStats{TotalUsed: totalUsed, Remaining: decimal.Zero}
	if goal.IsPositive() {
		stats.Remaining = goal.Sub(totalUsed)
		progress, _ := totalUsed.Div(goal).Mul(decimal.NewFromInt(100)).Float64()
		if progress < 0 {
			progress = 0
		}
		if progress > 100 {
			progress = 100
		}
		stats.Progress = progress
	}
	return stats
}
