package domain

import "time"

// InventoryItem is one line item in the shared feed. Items are immutable once
// written; the backing store is the source of truth and every displayed item
// originates from a subscription snapshot, never from a local echo.
type InventoryItem struct {
	ID       string
	Date     string // calendar date, no timezone semantics
	Item     string
	ItemSize string
	Quantity int
	AddedBy  string

	// Timestamp is the server-assigned ordering token. It is nil until the
	// write commits; token-less items sort after all tokened ones.
	Timestamp *time.Time
}

// ItemFields holds the raw form input for a submission. Quantity stays a
// string here; it is parsed at submit time.
type ItemFields struct {
	Date     string
	Item     string
	ItemSize string
	Quantity string
}

// Complete reports whether all four fields are present.
func (f ItemFields) Complete() bool {
	return f.Date != "" && f.Item != "" && f.ItemSize != "" && f.Quantity != ""
}
