package model

import "time"

// History actions. The details text for each action follows a fixed set
// of phrasing templates that older scoring data depends on.
const (
	ActionAdd            = "add"
	ActionRemove         = "remove"
	ActionUpdateQuantity = "update_quantity"
	ActionUpdateRequired = "update_required"
	ActionEditRequired   = "edit_required"
	ActionCraft          = "craft"
	ActionReset          = "reset"
)

// HistoryEntry is one immutable row of the audit ledger. Delta carries
// the applied signed quantity change for rows written by this server;
// rows imported from legacy logs leave it nil and are recovered from
// the details text by the scoring parser.
type HistoryEntry struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts"` // sortable RFC3339 millis, UTC
	Domain   Domain `json:"domain"`
	Category string `json:"category"`
	ItemName string `json:"item_name"`
	Action   string `json:"action"`
	Details  string `json:"details"`
	UserName string `json:"user_name"`
	Delta    *int64 `json:"delta,omitempty"`
}

// HistoryTS formats t as the ledger's sortable timestamp string.
func HistoryTS(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
