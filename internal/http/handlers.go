package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/fault"
	"fintrack/internal/ledger"
	"fintrack/internal/period"
	"fintrack/internal/session"
)

var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// refDate reads the optional ?date=YYYY-MM-DD query parameter, falling
// back to now. The date anchors period and rollover computations so
// they stay testable.
func refDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), nil
	}
	ref, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fault.Wrap(fault.Validation, err, "invalid date %q, want YYYY-MM-DD", raw)
	}
	return ref, nil
}

type transactionDTO struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Destination string          `json:"destination,omitempty"`
}

func toDTO(tx core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          tx.ID,
		Date:        tx.Date.UTC().Format("2006-01-02"),
		Description: tx.Description,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Source:      string(tx.Source),
		Destination: string(tx.Destination),
	}
}

func toDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toDTO(tx)
	}
	return out
}

type configDTO struct {
	InitialGeneral    decimal.Decimal `json:"initialGeneral"`
	InitialProvision  decimal.Decimal `json:"initialProvision"`
	MonthlyIncomeGoal decimal.Decimal `json:"monthlyIncomeGoal"`
	LastRolloverMonth string          `json:"lastRolloverMonth,omitempty"`
}

type overviewResponse struct {
	Balances    core.Balances    `json:"balances"`
	PeriodStats core.PeriodStats `json:"periodStats"`
	Config      configDTO        `json:"config"`
	Stale       bool             `json:"stale"`
	RefreshedAt string           `json:"refreshedAt,omitempty"`
}

// handleOverview returns balances, current-period stats and the active
// configuration. When the session has never loaded and a snapshot
// exists, the snapshot serves the same views flagged as stale.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ref, err := refDate(r)
	if err != nil {
		writeFault(w, r, err)
		return
	}

	if s.sess.Loaded() {
		cfg := s.sess.Config()
		writeJSON(w, http.StatusOK, overviewResponse{
			Balances:    s.sess.Balances(),
			PeriodStats: s.sess.PeriodStats(ref),
			Config: configDTO{
				InitialGeneral:    cfg.InitialGeneral,
				InitialProvision:  cfg.InitialProvision,
				MonthlyIncomeGoal: cfg.MonthlyIncomeGoal,
				LastRolloverMonth: cfg.LastRolloverMonth,
			},
		})
		return
	}

	if s.snapshot == nil {
		writeFault(w, r, fault.New(fault.Transport, "ledger not loaded and no snapshot available"))
		return
	}
	txs, cfg, refreshedAt, err := s.snapshot.Snapshot(r.Context())
	if err != nil {
		writeFault(w, r, fault.Wrap(fault.Transport, err, "read snapshot"))
		return
	}
	if refreshedAt.IsZero() {
		writeFault(w, r, fault.New(fault.Transport, "ledger not loaded and snapshot is empty"))
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		Balances:    ledger.ComputeBalances(txs, cfg),
		PeriodStats: period.Stats(txs, period.Current(ref), cfg.MonthlyIncomeGoal),
		Config: configDTO{
			InitialGeneral:    cfg.InitialGeneral,
			InitialProvision:  cfg.InitialProvision,
			MonthlyIncomeGoal: cfg.MonthlyIncomeGoal,
			LastRolloverMonth: cfg.LastRolloverMonth,
		},
		Stale:       true,
		RefreshedAt: refreshedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w, r) {
		return
	}
	months := s.sess.Months()
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"months": months})
}

type aggregatesResponse struct {
	Monthly []core.MonthlyData `json:"monthly"`
	Daily   []core.DailyData   `json:"daily,omitempty"`
	Summary *core.MonthSummary `json:"summary,omitempty"`
}

// handleAggregates returns the chart buckets. With ?month=YYYY-MM it
// additionally includes that month's daily expenses and summary.
func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w, r) {
		return
	}
	resp := aggregatesResponse{Monthly: s.sess.Monthly()}
	if resp.Monthly == nil {
		resp.Monthly = []core.MonthlyData{}
	}

	if month := r.URL.Query().Get("month"); month != "" {
		if !monthKeyRe.MatchString(month) {
			writeFault(w, r, fault.New(fault.Validation, "invalid month %q, want YYYY-MM", month))
			return
		}
		resp.Daily = s.sess.Daily(month)
		summary := s.sess.MonthSummary(month)
		resp.Summary = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]transactionDTO{
		"transactions": toDTOs(s.sess.Transactions()),
	})
}

type createTransactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, r, fault.Wrap(fault.Validation, err, "invalid request body"))
		return
	}

	date := time.Now()
	if strings.TrimSpace(req.Date) != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeFault(w, r, fault.Wrap(fault.Validation, err, "invalid date %q, want YYYY-MM-DD", req.Date))
			return
		}
	}

	tx, err := s.sess.Add(r.Context(), session.AddInput{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Source:      core.FundSource(strings.ToUpper(strings.TrimSpace(req.Source))),
		Destination: core.FundSource(strings.ToUpper(strings.TrimSpace(req.Destination))),
	})
	if err != nil {
		writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeFault(w, r, fault.New(fault.Validation, "missing transaction id"))
		return
	}
	if err := s.sess.Delete(r.Context(), id); err != nil {
		writeFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveConfigRequest struct {
	InitialGeneral    string `json:"initialGeneral"`
	InitialProvision  string `json:"initialProvision"`
	MonthlyIncomeGoal string `json:"monthlyIncomeGoal"`
}

// handleSaveConfig updates the three user-editable settings. The
// rollover marker is owned by the rollover flow and cannot be set here.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, r, fault.Wrap(fault.Validation, err, "invalid request body"))
		return
	}

	cfg := s.sess.Config()
	next := core.Config{
		InitialGeneral:    cfg.InitialGeneral,
		InitialProvision:  cfg.InitialProvision,
		MonthlyIncomeGoal: cfg.MonthlyIncomeGoal,
		LastRolloverMonth: cfg.LastRolloverMonth,
	}
	fields := []struct {
		raw  string
		name string
		dst  *decimal.Decimal
	}{
		{req.InitialGeneral, "initialGeneral", &next.InitialGeneral},
		{req.InitialProvision, "initialProvision", &next.InitialProvision},
		{req.MonthlyIncomeGoal, "monthlyIncomeGoal", &next.MonthlyIncomeGoal},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		v, err := decimal.NewFromString(strings.ReplaceAll(f.raw, ",", "."))
		if err != nil {
			writeFault(w, r, fault.Wrap(fault.Validation, err, "invalid %s %q", f.name, f.raw))
			return
		}
		if v.IsNegative() {
			writeFault(w, r, fault.New(fault.Validation, "%s cannot be negative", f.name))
			return
		}
		*f.dst = v
	}

	if err := s.sess.SaveConfig(r.Context(), next); err != nil {
		writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configDTO{
		InitialGeneral:    next.InitialGeneral,
		InitialProvision:  next.InitialProvision,
		MonthlyIncomeGoal: next.MonthlyIncomeGoal,
		LastRolloverMonth: next.LastRolloverMonth,
	})
}

type rolloverResponse struct {
	Executed bool            `json:"executed"`
	Month    string          `json:"month,omitempty"`
	Surplus  decimal.Decimal `json:"surplus"`
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	if !s.requireLoaded(w, r) {
		return
	}
	ref, err := refDate(r)
	if err != nil {
		writeFault(w, r, err)
		return
	}
	plan, err := s.sess.Rollover(r.Context(), ref)
	if err != nil {
		writeFault(w, r, err)
		return
	}
	if plan == nil {
		writeJSON(w, http.StatusOK, rolloverResponse{Executed: false})
		return
	}
	writeJSON(w, http.StatusOK, rolloverResponse{
		Executed: true,
		Month:    plan.Month,
		Surplus:  plan.Surplus,
	})
}

// handleReload refreshes the session from the remote store and updates
// the snapshot on success.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.Load(r.Context()); err != nil {
		writeFault(w, r, err)
		return
	}
	if s.snapshot != nil {
		if err := s.snapshot.Replace(r.Context(), s.sess.Transactions(), s.sess.Config()); err != nil {
			// The reload itself succeeded; a stale snapshot is tolerable.
			slog.WarnContext(r.Context(), "Failed to update snapshot after reload", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"transactions": len(s.sess.Transactions())})
}

type adviceRequest struct {
	Prompt string `json:"prompt"`
}

// handleAdvice forwards the caller-built prompt to the generative model
// and returns its text verbatim.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.adv == nil {
		writeFault(w, r, fault.New(fault.Transport, "advisor not configured"))
		return
	}
	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFault(w, r, fault.Wrap(fault.Validation, err, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeFault(w, r, fault.New(fault.Validation, "empty prompt"))
		return
	}
	text, err := s.adv.Generate(r.Context(), req.Prompt)
	if err != nil {
		writeFault(w, r, fault.Wrap(fault.Transport, err, "generate advice"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": text})
}

func (s *Server) requireLoaded(w http.ResponseWriter, r *http.Request) bool {
	if s.sess.Loaded() {
		return true
	}
	writeFault(w, r, fault.New(fault.Transport, "ledger not loaded"))
	return false
}
