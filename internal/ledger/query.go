package ledger

import (
	"strings"

	"moneycontrol/internal/core"
)

// Filter narrows a query. Zero-valued fields are ignored; the rest are ANDed.
// DateFrom and DateTo are inclusive.
type Filter struct {
	DateFrom core.Date
	DateTo   core.Date
	Kind     core.Kind
	Category string
	Text     string // case-insensitive match on category or note
}

func (f Filter) Matches(t core.Transaction) bool {
	if !f.DateFrom.IsZero() && t.Date.Compare(f.DateFrom) < 0 {
		return false
	}
	if !f.DateTo.IsZero() && t.Date.Compare(f.DateTo) > 0 {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Text != "" {
		txt := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(t.Category), txt) &&
			!strings.Contains(strings.ToLower(t.Note), txt) {
			return false
		}
	}
	return true
}

// Query returns the matching transactions in store order. The slice is a
// copy owned by the caller.
func (s *Store) Query(f Filter) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
