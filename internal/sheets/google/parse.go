package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Config sheet layout: fixed key/value rows A1:B4.
const (
	keyInitialGeneral   = "INITIAL_GENERAL_BALANCE"
	keyInitialProvision = "INITIAL_PROVISION_BALANCE"
	keyMonthlyGoal      = "MONTHLY_INCOME_GOAL"
	keyLastRollover     = "LAST_ROLLOVER_MONTH"
)

func defaultConfigRows() [][]any {
	return [][]any{
		{keyInitialGeneral, "0"},
		{keyInitialProvision, "0"},
		{keyMonthlyGoal, "0"},
		{keyLastRollover, ""},
	}
}

func configRows(cfg core.Config) [][]any {
	return [][]any{
		{keyInitialGeneral, cfg.InitialGeneral.String()},
		{keyInitialProvision, cfg.InitialProvision.String()},
		{keyMonthlyGoal, cfg.MonthlyIncomeGoal.String()},
		{keyLastRollover, cfg.LastRolloverMonth},
	}
}

// parseConfig builds a Config from key/value rows. Unknown keys are
// ignored and missing keys fall back to zero values.
func parseConfig(values [][]any) core.Config {
	byKey := map[string]string{}
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key == "" {
			continue
		}
		val := ""
		if len(row) > 1 {
			val = strings.TrimSpace(fmt.Sprint(row[1]))
		}
		byKey[key] = val
	}
	return core.Config{
		InitialGeneral:    core.ParseConfigValue(byKey[keyInitialGeneral]),
		InitialProvision:  core.ParseConfigValue(byKey[keyInitialProvision]),
		MonthlyIncomeGoal: core.ParseConfigValue(byKey[keyMonthlyGoal]),
		LastRolloverMonth: byKey[keyLastRollover],
	}
}

// transactionRow serializes a transaction for columns A:G.
func transactionRow(tx core.Transaction) []any {
	dest := ""
	if tx.Type == core.Transfer {
		dest = string(tx.Destination)
	}
	return []any{
		tx.ID,
		tx.Date.UTC().Format(time.RFC3339),
		tx.Description,
		tx.Amount.String(),
		string(tx.Type),
		string(tx.Source),
		dest,
	}
}

// parseTransactions converts sheet rows (header included) to typed
// records. Rows without an id or date are skipped; the list is
// best-effort, matching how hand-edited sheets drift.
func parseTransactions(values [][]any) []core.Transaction {
	if len(values) <= 1 {
		return nil
	}
	out := make([]core.Transaction, 0, len(values)-1)
	for i, row := range values[1:] {
		cols := toStrings(row)
		if len(cols) < 6 {
			continue
		}
		id := cols[0]
		date, ok := parseDate(cols[1])
		if id == "" || !ok {
			continue
		}
		amount, err := core.ParseAmount(cols[3])
		if err != nil {
			continue
		}
		tx := core.Transaction{
			ID:          id,
			Date:        date,
			Description: cols[2],
			Amount:      amount,
			Type:        core.TransactionType(cols[4]),
			Source:      core.FundSource(cols[5]),
			RowIndex:    int64(i) + 2, // 1-based, after the header row
		}
		if len(cols) > 6 && cols[6] != "" {
			tx.Destination = core.FundSource(cols[6])
		}
		out = append(out, tx)
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// rowFromRange extracts the row number from an A1-notation range like
// "Transactions!A12:G12".
func rowFromRange(rng string) (int64, error) {
	if i := strings.Index(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("no row number in range %q", rng)
	}
	return row, nil
}
