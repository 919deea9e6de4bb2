// Package google implements the sheets ports on top of the Google
// Sheets API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/fault"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	transactionsSheet = "Transactions"
	configSheet       = "Config"

	transactionsRange = transactionsSheet + "!A:G"
	configRange       = configSheet + "!A:B"
)

// Client talks to one user's spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	// sheetIDs caches sheet title -> numeric id from the last metadata
	// read. Row deletes need the numeric id.
	sheetIDs map[string]int64
}

var _ ports.LedgerStore = (*Client)(nil)

// NewFromEnv creates a ledger client for the given spreadsheet using
// service account credentials from the environment.
func NewFromEnv(ctx context.Context, spreadsheetID string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

// New wraps an existing Sheets service. Used by the registry client and
// by tests that stub the service.
func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetIDs: map[string]int64{}}
}

// NewService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS. Shared with the registry client.
func NewService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// refreshMetadata reads spreadsheet metadata and verifies both sheets
// exist.
func (c *Client) refreshMetadata(ctx context.Context) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "read spreadsheet metadata")
	}
	ids := make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	c.sheetIDs = ids

	for _, name := range []string{transactionsSheet, configSheet} {
		if _, ok := ids[name]; !ok {
			return fault.New(fault.NotFound, "sheet %q not found in spreadsheet", name)
		}
	}
	return nil
}

// Load implements ports.LedgerStore. Empty sheets are initialized with
// the expected schema in one batch write, then re-read so the caller
// never sees partially-initialized state.
func (c *Client) Load(ctx context.Context) ([]core.Transaction, core.Config, error) {
	if err := c.refreshMetadata(ctx); err != nil {
		return nil, core.Config{}, err
	}

	initialized := false
	for {
		resp, err := c.svc.Spreadsheets.Values.
			BatchGet(c.spreadsheetID).
			Ranges(configRange, transactionsRange).
			Context(ctx).Do()
		if err != nil {
			return nil, core.Config{}, fault.FromGoogleAPI(err, "read sheets")
		}
		if len(resp.ValueRanges) != 2 {
			return nil, core.Config{}, fault.New(fault.Transport, "unexpected batch response: %d ranges", len(resp.ValueRanges))
		}
		configValues := resp.ValueRanges[0].Values
		txValues := resp.ValueRanges[1].Values

		if len(configValues) == 0 || len(txValues) == 0 {
			if initialized {
				return nil, core.Config{}, fault.New(fault.Transport, "sheets still empty after initialization")
			}
			slog.InfoContext(ctx, "Empty sheets detected, initializing schema",
				"spreadsheet_id", c.spreadsheetID,
				"config_empty", len(configValues) == 0,
				"transactions_empty", len(txValues) == 0)
			if err := c.initialize(ctx, len(configValues) == 0, len(txValues) == 0); err != nil {
				return nil, core.Config{}, err
			}
			initialized = true
			continue
		}

		cfg := parseConfig(configValues)
		txs := parseTransactions(txValues)
		return txs, cfg, nil
	}
}

// initialize writes the transaction header row and/or default config
// rows in a single batch update.
func (c *Client) initialize(ctx context.Context, needConfig, needTransactions bool) error {
	var data []*gsheet.ValueRange
	if needConfig {
		data = append(data, &gsheet.ValueRange{
			Range:  configSheet + "!A1:B4",
			Values: defaultConfigRows(),
		})
	}
	if needTransactions {
		data = append(data, &gsheet.ValueRange{
			Range:  transactionsSheet + "!A1:G1",
			Values: [][]any{{"id", "date", "description", "amount", "type", "source", "destination"}},
		})
	}
	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fault.FromGoogleAPI(err, "initialize sheets")
	}
	return nil
}

// Append implements ports.LedgerStore.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fault.Wrap(fault.Validation, err, "invalid transaction")
	}

	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, transactionsRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fault.FromGoogleAPI(err, "append transaction")
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return 0, fault.New(fault.Transport, "append returned no updated range")
	}
	row, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, fault.Wrap(fault.Transport, err, "parse appended range %q", resp.Updates.UpdatedRange)
	}
	slog.InfoContext(ctx, "Transaction appended",
		"id", tx.ID, "row", row, "type", string(tx.Type), "amount", tx.Amount.String())
	return row, nil
}

// Delete implements ports.LedgerStore. The row is located by id at
// delete time because positional indexes shift whenever an earlier row
// is removed.
func (c *Client) Delete(ctx context.Context, id string) error {
	sheetID, ok := c.sheetIDs[transactionsSheet]
	if !ok {
		if err := c.refreshMetadata(ctx); err != nil {
			return err
		}
		sheetID = c.sheetIDs[transactionsSheet]
	}

	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, transactionsSheet+"!A:A").
		Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "locate transaction row")
	}

	row := int64(-1)
	for i, cells := range resp.Values {
		if len(cells) > 0 && strings.TrimSpace(fmt.Sprint(cells[0])) == id {
			row = int64(i) + 1 // 1-based
			break
		}
	}
	if row < 2 { // row 1 is the header
		return fault.New(fault.NotFound, "transaction %s not found", id)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: row - 1,
					EndIndex:   row,
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fault.FromGoogleAPI(err, "delete transaction row")
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "row", row)
	return nil
}

// SaveConfig implements ports.LedgerStore. All four rows go out in one
// batch so a rollover update lands atomically.
func (c *Client) SaveConfig(ctx context.Context, cfg core.Config) error {
	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{{
			Range:  configSheet + "!A1:B4",
			Values: configRows(cfg),
		}},
	}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fault.FromGoogleAPI(err, "save config")
	}
	return nil
}
