// Package ledger holds the pure computations over the transaction
// list: fund balances and the chart aggregations.
package ledger

import (
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// ComputeBalances replays all transactions over the initial balances.
// The fold is a commutative sum, so the input order does not matter.
func ComputeBalances(txs []core.Transaction, cfg core.Config) core.Balances {
	general := cfg.InitialGeneral
	provision := cfg.InitialProvision

	add := func(fund core.FundSource, amount decimal.Decimal) {
		if fund == core.General {
			general = general.Add(amount)
		} else {
			provision = provision.Add(amount)
		}
	}

	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			add(tx.Source, tx.Amount)
		case core.Expense:
			add(tx.Source, tx.Amount.Neg())
		case core.Transfer:
			add(tx.Source, tx.Amount.Neg())
			add(tx.Destination, tx.Amount)
		}
	}

	return core.Balances{General: general, Provision: provision}
}
