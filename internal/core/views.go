package core

import "github.com/shopspring/decimal"

// Derived views. All of these are recomputed from the transaction list
// plus Config and are never persisted.

type (
	// Balances is the current position of both funds. Values may go
	// negative; overdraft is displayed as a warning, not treated as an
	// error.
	Balances struct {
		General   decimal.Decimal `json:"general"`
		Provision decimal.Decimal `json:"provision"`
	}

	// PeriodStats summarizes spending inside one budget period against
	// the monthly goal.
	PeriodStats struct {
		TotalUsed decimal.Decimal `json:"totalUsed"`
		Remaining decimal.Decimal `json:"remaining"`
		// Progress is totalUsed/goal as a percentage clamped to [0,100].
		Progress float64 `json:"progress"`
	}

	// MonthlyData is one chart bucket keyed by month.
	MonthlyData struct {
		Month   string          `json:"month"` // "MM"
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}

	// DailyData is one chart bucket keyed by day of month.
	DailyData struct {
		Day     string          `json:"day"` // "DD"
		Expense decimal.Decimal `json:"expense"`
	}

	// MonthSummary totals one calendar month for the detail view.
	MonthSummary struct {
		Income      decimal.Decimal `json:"income"`
		Expense     decimal.Decimal `json:"expense"`
		TransferOut decimal.Decimal `json:"transferOut"`
		Remaining   decimal.Decimal `json:"remaining"`
	}
)
