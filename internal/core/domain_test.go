package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tx(t TransactionType, src, dst FundSource) Transaction {
	return Transaction{
		ID:          NewTransactionID(),
		Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "test",
		Amount:      decimal.NewFromInt(100),
		Type:        t,
		Source:      src,
		Destination: dst,
	}
}

func TestTransactionValidate(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		ok   bool
	}{
		{"income general", tx(Income, General, ""), true},
		{"expense provision", tx(Expense, Provision, ""), true},
		{"transfer general to provision", tx(Transfer, General, Provision), true},
		{"transfer provision to general", tx(Transfer, Provision, General), true},
		{"transfer same fund", tx(Transfer, General, General), false},
		{"transfer missing destination", tx(Transfer, General, ""), false},
		{"expense with destination", tx(Expense, General, Provision), false},
		{"bad type", tx("WITHDRAWAL", General, ""), false},
		{"bad source", tx(Income, "SAVINGS", ""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tx.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTransactionValidateRejectsBlanks(t *testing.T) {
	blank := tx(Expense, General, "")
	blank.Description = "   "
	if err := blank.Validate(); err != ErrEmptyDescription {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	zero := tx(Expense, General, "")
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	noDate := tx(Expense, General, "")
	noDate.Date = time.Time{}
	if err := noDate.Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestNewTransactionID(t *testing.T) {
	a, b := NewTransactionID(), NewTransactionID()
	if !strings.HasPrefix(a, "txn-") {
		t.Fatalf("expected txn- prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
}

func TestMonthAndDayKeys(t *testing.T) {
	e := tx(Expense, General, "")
	e.Date = time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)
	if got := e.MonthKey(); got != "2024-03" {
		t.Fatalf("MonthKey = %q, want 2024-03", got)
	}
	if got := e.DayKey(); got != "05" {
		t.Fatalf("DayKey = %q, want 05", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 100 ", "100", true},
		{"0", "", false},
		{"-5", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tc.in, err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseAmount(%q) expected error", tc.in)
		}
	}
}

func TestParseConfigValue(t *testing.T) {
	if got := ParseConfigValue("1500,50"); got.String() != "1500.5" {
		t.Fatalf("got %s, want 1500.5", got)
	}
	if got := ParseConfigValue(""); !got.IsZero() {
		t.Fatalf("blank should parse to zero, got %s", got)
	}
	if got := ParseConfigValue("n/a"); !got.IsZero() {
		t.Fatalf("malformed should parse to zero, got %s", got)
	}
	if got := ParseConfigValue("-200"); got.String() != "-200" {
		t.Fatalf("config values may be negative, got %s", got)
	}
}

func TestFundSourceOther(t *testing.T) {
	if General.Other() != Provision || Provision.Other() != General {
		t.Fatalf("Other should swap funds")
	}
}
