package ledger

import (
	"sort"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type monthTotals struct {
	income  decimal.Decimal
	expense decimal.Decimal
}

// GroupByMonth buckets transactions by their "YYYY-MM" prefix and sums
// income and expense separately per bucket, sorted by month key
// ascending. Transfers do not contribute to either column.
func GroupByMonth(txs []core.Transaction) []core.MonthlyData {
	buckets := map[string]monthTotals{}
	for _, tx := range txs {
		key := tx.MonthKey()
		b := buckets[key]
		switch tx.Type {
		case core.Income:
			b.income = b.income.Add(tx.Amount)
		case core.Expense:
			b.expense = b.expense.Add(tx.Amount)
		default:
			continue
		}
		buckets[key] = b
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.MonthlyData, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		out = append(out, core.MonthlyData{
			// Chart label is the month part only.
			Month:   k[5:],
			Income:  b.income,
			Expense: b.expense,
		})
	}
	return out
}

// GroupByDay restricts to the given "YYYY-MM" month and buckets expense
// amounts by day of month, sorted by day ascending.
func GroupByDay(txs []core.Transaction, month string) []core.DailyData {
	buckets := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.MonthKey() != month {
			continue
		}
		day := tx.DayKey()
		buckets[day] = buckets[day].Add(tx.Amount)
	}

	days := make([]string, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]core.DailyData, 0, len(days))
	for _, d := range days {
		out = append(out, core.DailyData{Day: d, Expense: buckets[d]})
	}
	return out
}

// SummarizeMonth totals income, expense and transfers out of the
// general fund for one "YYYY-MM" month.
func SummarizeMonth(txs []core.Transaction, month string) core.MonthSummary {
	var s core.MonthSummary
	for _, tx := range txs {
		if tx.MonthKey() != month {
			continue
		}
		switch {
		case tx.Type == core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case tx.Type == core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		case tx.Type == core.Transfer && tx.Source == core.General:
			s.TransferOut = s.TransferOut.Add(tx.Amount)
		}
	}
	s.Remaining = s.Income.Sub(s.Expense).Sub(s.TransferOut)
	return s
}

// Months returns the distinct month keys present in the transaction
// list, newest first.
func Months(txs []core.Transaction) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tx := range txs {
		key := tx.MonthKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
