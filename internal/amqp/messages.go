package amqp

import (
	"encoding/json"
	"time"
)

// Ledger-change actions carried by events.
const (
	ActionAppend = "append"
	ActionDelete = "delete"
	ActionConfig = "config"
)

// LedgerEvent is a lightweight change notification. The worker fetches
// the full ledger from the spreadsheet itself; the event only says
// which spreadsheet changed and how.
type LedgerEvent struct {
	SpreadsheetID string    `json:"spreadsheetId"`
	Action        string    `json:"action"`
	TxID          string    `json:"txId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(spreadsheetID, action, txID string) *LedgerEvent {
	return &LedgerEvent{
		SpreadsheetID: spreadsheetID,
		Action:        action,
		TxID:          txID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var evt LedgerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
