// Package storage keeps a SQLite snapshot of the last successfully
// loaded ledger. The snapshot serves reads when the spreadsheet is
// unreachable and survives restarts; the spreadsheet stays the source
// of truth.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const (
	cfgInitialGeneral   = "INITIAL_GENERAL_BALANCE"
	cfgInitialProvision = "INITIAL_PROVISION_BALANCE"
	cfgMonthlyGoal      = "MONTHLY_INCOME_GOAL"
	cfgLastRollover     = "LAST_ROLLOVER_MONTH"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(dbPath string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotRepository{db: db}, nil
}

func (r *SnapshotRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Replace swaps the whole snapshot for the given ledger state in one
// transaction.
func (r *SnapshotRepository) Replace(ctx context.Context, txs []core.Transaction, cfg core.Config) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for _, tx := range txs {
		_, err := dbTx.ExecContext(ctx,
			`INSERT INTO transactions (id, date, description, amount, type, source, destination, row_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID,
			tx.Date.UTC().Format(time.RFC3339),
			tx.Description,
			tx.Amount.String(),
			string(tx.Type),
			string(tx.Source),
			string(tx.Destination),
			tx.RowIndex,
		)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}

	for key, value := range map[string]string{
		cfgInitialGeneral:   cfg.InitialGeneral.String(),
		cfgInitialProvision: cfg.InitialProvision.String(),
		cfgMonthlyGoal:      cfg.MonthlyIncomeGoal.String(),
		cfgLastRollover:     cfg.LastRolloverMonth,
	} {
		_, err := dbTx.ExecContext(ctx,
			`INSERT INTO config (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		if err != nil {
			return fmt.Errorf("upsert config %s: %w", key, err)
		}
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, refreshed_at) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET refreshed_at = excluded.refreshed_at`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}

	return dbTx.Commit()
}

// Snapshot loads the stored ledger state. RefreshedAt is zero when no
// snapshot has ever been written.
func (r *SnapshotRepository) Snapshot(ctx context.Context) ([]core.Transaction, core.Config, time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, amount, type, source, destination, row_index
		 FROM transactions ORDER BY date DESC`)
	if err != nil {
		return nil, core.Config{}, time.Time{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx                  core.Transaction
			date, amount        string
			txType, source, dst string
		)
		if err := rows.Scan(&tx.ID, &date, &tx.Description, &amount, &txType, &source, &dst, &tx.RowIndex); err != nil {
			return nil, core.Config{}, time.Time{}, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, core.Config{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
		}
		tx.Amount = core.ParseConfigValue(amount)
		tx.Type = core.TransactionType(txType)
		tx.Source = core.FundSource(source)
		tx.Destination = core.FundSource(dst)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Config{}, time.Time{}, fmt.Errorf("iterate transactions: %w", err)
	}

	cfg, err := r.loadConfig(ctx)
	if err != nil {
		return nil, core.Config{}, time.Time{}, err
	}

	var refreshedAt time.Time
	var stamp string
	err = r.db.QueryRowContext(ctx, `SELECT refreshed_at FROM snapshot_meta WHERE id = 1`).Scan(&stamp)
	switch {
	case err == sql.ErrNoRows:
		// never refreshed
	case err != nil:
		return nil, core.Config{}, time.Time{}, fmt.Errorf("query snapshot meta: %w", err)
	default:
		refreshedAt, _ = time.Parse(time.RFC3339, stamp)
	}

	return txs, cfg, refreshedAt, nil
}

func (r *SnapshotRepository) loadConfig(ctx context.Context) (core.Config, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return core.Config{}, fmt.Errorf("query config: %w", err)
	}
	defer rows.Close()

	byKey := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return core.Config{}, fmt.Errorf("scan config row: %w", err)
		}
		byKey[key] = value
	}
	if err := rows.Err(); err != nil {
		return core.Config{}, fmt.Errorf("iterate config: %w", err)
	}

	return core.Config{
		InitialGeneral:    core.ParseConfigValue(byKey[cfgInitialGeneral]),
		InitialProvision:  core.ParseConfigValue(byKey[cfgInitialProvision]),
		MonthlyIncomeGoal: core.ParseConfigValue(byKey[cfgMonthlyGoal]),
		LastRolloverMonth: byKey[cfgLastRollover],
	}, nil
}
