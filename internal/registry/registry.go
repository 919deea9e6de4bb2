// Package registry maps user ids to their personal spreadsheets via
// the deployment-wide master sheet.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/fault"
	ports "fintrack/internal/sheets"

	gsheet "google.golang.org/api/sheets/v4"
)

const (
	usersSheet  = "Users"
	usersRange  = usersSheet + "!A:B"
	headerRange = usersSheet + "!A1:B1"
)

var header = []string{"userId", "spreadsheetId"}

// Client reads and appends rows in the master spreadsheet's Users sheet.
type Client struct {
	svc      *gsheet.Service
	masterID string
}

var _ ports.UserRegistry = (*Client)(nil)

func New(svc *gsheet.Service, masterSpreadsheetID string) *Client {
	return &Client{svc: svc, masterID: masterSpreadsheetID}
}

// Lookup returns the spreadsheet id registered for the user.
func (c *Client) Lookup(ctx context.Context, userID string) (string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.masterID, usersRange).Context(ctx).Do()
	if err != nil {
		return "", fault.FromGoogleAPI(err, "read user registry")
	}
	id, ok := findUser(resp.Values, userID)
	if !ok {
		return "", fault.New(fault.NotFound, "no spreadsheet registered for user %s", userID)
	}
	return id, nil
}

// Register appends a user -> spreadsheet mapping, writing the header
// first when the sheet has never been used.
func (c *Client) Register(ctx context.Context, userID, spreadsheetID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(spreadsheetID) == "" {
		return fault.New(fault.Validation, "user id and spreadsheet id are required")
	}
	if err := c.ensureHeader(ctx); err != nil {
		return err
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.masterID, usersRange).Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "read user registry")
	}
	if _, ok := findUser(resp.Values, userID); ok {
		return fault.New(fault.Validation, "user %s is already registered", userID)
	}

	vr := &gsheet.ValueRange{Values: [][]any{{userID, spreadsheetID}}}
	_, err = c.svc.Spreadsheets.Values.
		Append(c.masterID, usersRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "register user")
	}
	slog.InfoContext(ctx, "User registered", "user_id", userID, "spreadsheet_id", spreadsheetID)
	return nil
}

// ensureHeader writes the [userId, spreadsheetId] header if the first
// row does not already carry it.
func (c *Client) ensureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.masterID, headerRange).Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "read registry header")
	}
	if hasHeader(resp.Values) {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{{header[0], header[1]}}}
	_, err = c.svc.Spreadsheets.Values.
		Update(c.masterID, headerRange, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fault.FromGoogleAPI(err, "write registry header")
	}
	return nil
}

func hasHeader(values [][]any) bool {
	if len(values) == 0 || len(values[0]) < 2 {
		return false
	}
	return fmt.Sprint(values[0][0]) == header[0] && fmt.Sprint(values[0][1]) == header[1]
}

// findUser scans registry rows, skipping the header, for the user id.
func findUser(values [][]any, userID string) (string, bool) {
	for i, row := range values {
		if len(row) < 2 {
			continue
		}
		first := strings.TrimSpace(fmt.Sprint(row[0]))
		if i == 0 && first == header[0] {
			continue
		}
		if first == userID {
			return strings.TrimSpace(fmt.Sprint(row[1])), true
		}
	}
	return "", false
}
