package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerStore is the remote tabular store holding one user's
	// transactions and configuration.
	LedgerStore interface {
		// Load reads both sheets, initializing headers and config rows
		// first when the backing resource is empty. It never returns
		// partially-initialized state: after an initialization it
		// re-reads before returning.
		Load(ctx context.Context) ([]core.Transaction, core.Config, error)

		// Append writes one transaction row and returns its 1-based
		// row index in the backing sheet.
		Append(ctx context.Context, tx core.Transaction) (int64, error)

		// Delete removes the row holding the transaction with the
		// given id. Implementations locate the row at delete time;
		// stored row indexes go stale as soon as an earlier row is
		// removed.
		Delete(ctx context.Context, id string) error

		// SaveConfig persists all four config rows as one batch.
		SaveConfig(ctx context.Context, cfg core.Config) error
	}

	// UserRegistry maps opaque user ids to per-user spreadsheet ids in
	// the deployment-wide master sheet.
	UserRegistry interface {
		Lookup(ctx context.Context, userID string) (spreadsheetID string, err error)
		Register(ctx context.Context, userID, spreadsheetID string) error
	}
)
