package sheets

import (
	"context"

	"moneycontrol/internal/core"
)

// Exporter renders a set of transactions to an external tabular destination.
// Implementations must treat the slice as read-only.
type Exporter interface {
	Export(ctx context.Context, txs []core.Transaction) (ref string, err error)
}

// Header is the column layout every exporter writes.
var Header = []string{"ID", "Date", "Kind", "Category", "Amount", "Note"}

// Row converts a transaction to cells in Header order.
func Row(t core.Transaction) []string {
	return []string{t.ID, t.Date.String(), t.Kind.String(), t.Category, t.Amount.String(), t.Note}
}
