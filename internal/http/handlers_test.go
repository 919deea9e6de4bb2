package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/session"
	"fintrack/internal/sheets/memory"
)

func testServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.Seed([]core.Transaction{
		{
			ID: "txn-seed", Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			Description: "groceries", Amount: decimal.NewFromInt(400),
			Type: core.Expense, Source: core.General,
		},
	}, core.Config{
		InitialGeneral:    decimal.NewFromInt(1000),
		MonthlyIncomeGoal: decimal.NewFromInt(2000),
	})

	sess := session.New(store, nil)
	if err := sess.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return NewServer(":0", sess, nil, nil), store
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestOverview(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/overview?date=2024-03-25", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Balances struct {
			General decimal.Decimal `json:"general"`
		} `json:"balances"`
		PeriodStats struct {
			TotalUsed decimal.Decimal `json:"totalUsed"`
			Remaining decimal.Decimal `json:"remaining"`
		} `json:"periodStats"`
		Stale bool `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Balances.General.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("general = %s, want 600", resp.Balances.General)
	}
	if !resp.PeriodStats.TotalUsed.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("totalUsed = %s, want 400", resp.PeriodStats.TotalUsed)
	}
	if resp.Stale {
		t.Fatalf("loaded session should not report stale data")
	}
}

func TestOverviewRejectsBadDate(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/overview?date=03-25-2024", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-21","description":"coffee","amount":"3,50","type":"expense","source":"general"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var tx struct {
		ID     string          `json:"id"`
		Amount decimal.Decimal `json:"amount"`
		Type   string          `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(tx.ID, "txn-") {
		t.Fatalf("id = %q", tx.ID)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("amount = %s", tx.Amount)
	}
	if tx.Type != "EXPENSE" {
		t.Fatalf("type = %q, lowercase input should be normalized", tx.Type)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, _ := testServer(t)
	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"description":"x","amount":"-1","type":"EXPENSE","source":"GENERAL"}`},
		{"same fund transfer", `{"description":"x","amount":"10","type":"TRANSFER","source":"GENERAL","destination":"GENERAL"}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodDelete, "/api/transactions/txn-seed", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/txn-seed", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestSaveConfig(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodPut, "/api/config", `{"monthlyIncomeGoal":"2500"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		MonthlyIncomeGoal decimal.Decimal `json:"monthlyIncomeGoal"`
		InitialGeneral    decimal.Decimal `json:"initialGeneral"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.MonthlyIncomeGoal.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("goal = %s", resp.MonthlyIncomeGoal)
	}
	// Untouched fields keep their previous values.
	if !resp.InitialGeneral.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("initialGeneral = %s, want 1000", resp.InitialGeneral)
	}
}

func TestSaveConfigRejectsNegative(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodPut, "/api/config", `{"initialGeneral":"-100"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestRollover(t *testing.T) {
	srv, _ := testServer(t)

	// Day before the boundary: nothing to do.
	rec := doJSON(t, srv, http.MethodPost, "/api/rollover?date=2024-03-14", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Executed bool            `json:"executed"`
		Month    string          `json:"month"`
		Surplus  decimal.Decimal `json:"surplus"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Executed {
		t.Fatalf("no rollover expected before the boundary day")
	}

	// Boundary day: previous period is clean, full goal rolls over.
	rec = doJSON(t, srv, http.MethodPost, "/api/rollover?date=2024-03-15", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Executed || resp.Month != "2024-03" {
		t.Fatalf("unexpected rollover response: %+v", resp)
	}
	if !resp.Surplus.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("surplus = %s, want 2000", resp.Surplus)
	}

	// Same month again is a no-op.
	rec = doJSON(t, srv, http.MethodPost, "/api/rollover?date=2024-03-16", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Executed {
		t.Fatalf("rollover must be idempotent per month")
	}
}

func TestAggregates(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/aggregates?month=2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Monthly []struct {
			Month string `json:"month"`
		} `json:"monthly"`
		Daily []struct {
			Day string `json:"day"`
		} `json:"daily"`
		Summary *struct {
			Expense decimal.Decimal `json:"expense"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Monthly) != 1 || resp.Monthly[0].Month != "03" {
		t.Fatalf("monthly = %+v", resp.Monthly)
	}
	if len(resp.Daily) != 1 || resp.Daily[0].Day != "20" {
		t.Fatalf("daily = %+v", resp.Daily)
	}
	if resp.Summary == nil || !resp.Summary.Expense.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("summary = %+v", resp.Summary)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/aggregates?month=march", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month: status = %d, want 422", rec.Code)
	}
}

func TestAdviceWithoutAdvisor(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/advice", `{"prompt":"how am I doing"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestReloadFailureMapsToBadGateway(t *testing.T) {
	srv, store := testServer(t)
	store.FailNext(context.DeadlineExceeded)
	rec := doJSON(t, srv, http.MethodPost, "/api/reload", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body %s", rec.Code, rec.Body)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := testServer(t)
	if rec := doJSON(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}

	unloaded := NewServer(":0", session.New(memory.New(), nil), nil, nil)
	if rec := doJSON(t, unloaded, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unloaded readyz = %d, want 503", rec.Code)
	}
}
