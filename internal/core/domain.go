package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"
)

const (
	General   FundSource = "GENERAL"
	Provision FundSource = "PROVISION"
)

type (
	TransactionType string

	// FundSource identifies which of the two funds a transaction touches.
	FundSource string

	// Transaction is a single ledger entry backed by one spreadsheet row.
	Transaction struct {
		ID          string
		Date        time.Time
		Description string
		Amount      decimal.Decimal
		Type        TransactionType
		Source      FundSource
		// Destination is set only for transfers and must differ from Source.
		Destination FundSource
		// RowIndex is the 1-based row in the backing sheet, assigned on
		// load and append. It is a positional hint, not a stable key.
		RowIndex int64
	}

	// Config holds the per-user settings persisted in the Config sheet.
	Config struct {
		InitialGeneral    decimal.Decimal
		InitialProvision  decimal.Decimal
		MonthlyIncomeGoal decimal.Decimal
		// LastRolloverMonth is "YYYY-MM" of the last processed rollover,
		// or empty when no rollover has ever run.
		LastRolloverMonth string
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidSource    = errors.New("invalid fund source")
	ErrSameFund         = errors.New("transfer source and destination must differ")
	ErrStrayDestination = errors.New("destination is only valid for transfers")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (s FundSource) Valid() bool {
	return s == General || s == Provision
}

// Other returns the opposite fund.
func (s FundSource) Other() FundSource {
	if s == General {
		return Provision
	}
	return General
}

// NewTransactionID returns a fresh opaque transaction id.
func NewTransactionID() string {
	return "txn-" + uuid.NewString()
}

// Validate checks a transaction before it reaches the remote store.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Source.Valid() {
		return ErrInvalidSource
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if t.Type == Transfer {
		if !t.Destination.Valid() {
			return ErrInvalidSource
		}
		if t.Destination == t.Source {
			return ErrSameFund
		}
	} else if t.Destination != "" {
		return ErrStrayDestination
	}
	return nil
}

// MonthKey returns the "YYYY-MM" grouping key of the transaction date.
func (t Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}

// DayKey returns the "DD" grouping key of the transaction date.
func (t Transaction) DayKey() string {
	return t.Date.Format("02")
}
