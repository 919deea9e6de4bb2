// Package backend selects and wires the ledger store for a process
// based on configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/config"
	"fintrack/internal/registry"
	ports "fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	mem "fintrack/internal/sheets/memory"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Create builds the LedgerStore named by cfg.DataBackend. For the
// sheets backend the spreadsheet id comes either directly from config
// or from a registry lookup by user id.
func Create(ctx context.Context, cfg *config.Config) (ports.LedgerStore, CleanupFunc, error) {
	switch cfg.DataBackend {
	case "sheets":
		svc, err := gsheet.NewService(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets service: %w", err)
		}

		spreadsheetID := cfg.UserSpreadsheetID
		if spreadsheetID == "" {
			reg := registry.New(svc, cfg.MasterSpreadsheetID)
			spreadsheetID, err = reg.Lookup(ctx, cfg.UserID)
			if err != nil {
				return nil, nil, fmt.Errorf("resolve spreadsheet for user %s: %w", cfg.UserID, err)
			}
			slog.InfoContext(ctx, "Resolved user spreadsheet",
				"user_id", cfg.UserID, "spreadsheet_id", spreadsheetID)
		}

		return gsheet.New(svc, spreadsheetID), func() error { return nil }, nil

	case "memory":
		return mem.New(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
