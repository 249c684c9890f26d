package ledger

import (
	"errors"
	"slices"
	"strings"

	"moneycontrol/internal/core"
)

var errBlankLabel = errors.New("blank category label")

// CategorySet holds the ordered category labels offered for each kind.
// Removing a label never touches transactions that already use it.
type CategorySet struct {
	lists map[core.Kind][]string
}

// DefaultCategories returns the built-in set.
func DefaultCategories() *CategorySet {
	return NewCategorySet(map[core.Kind][]string{
		core.KindIncome:  {"Transferencia", "Depósito", "Otros"},
		core.KindExpense: {"Transferencia", "Giros", "Extracción", "Otros"},
		core.KindLoan:    {core.LoanLent, core.LoanRepayment, core.LoanReturned},
	})
}

// NewCategorySet builds a set from persisted lists. Blank and duplicate
// labels are dropped, unknown kinds ignored, input order preserved.
func NewCategorySet(lists map[core.Kind][]string) *CategorySet {
	c := &CategorySet{lists: make(map[core.Kind][]string)}
	for _, kind := range core.Kinds() {
		for _, label := range lists[kind] {
			_, _ = c.Add(kind, label)
		}
	}
	return c
}

// Add appends label to the kind's list. A label already present is a no-op
// reported as added == false, not as an error. Loan labels are limited to the
// closed loan category set.
func (c *CategorySet) Add(kind core.Kind, label string) (bool, error) {
	label, err := checkLabel(kind, label)
	if err != nil {
		return false, err
	}
	if kind == core.KindLoan && !core.IsLoanCategory(label) {
		return false, &ValidationError{Field: "category", Err: core.ErrInvalidLoanCategory}
	}
	if slices.Contains(c.lists[kind], label) {
		return false, nil
	}
	c.lists[kind] = append(c.lists[kind], label)
	return true, nil
}

// Remove drops label from the kind's list and reports whether it was there.
func (c *CategorySet) Remove(kind core.Kind, label string) (bool, error) {
	label, err := checkLabel(kind, label)
	if err != nil {
		return false, err
	}
	i := slices.Index(c.lists[kind], label)
	if i < 0 {
		return false, nil
	}
	c.lists[kind] = slices.Delete(c.lists[kind], i, i+1)
	return true, nil
}

// List returns a copy of the labels for kind.
func (c *CategorySet) List(kind core.Kind) []string {
	return slices.Clone(c.lists[kind])
}

// Snapshot returns a deep copy of every list, keyed by kind.
func (c *CategorySet) Snapshot() map[core.Kind][]string {
	out := make(map[core.Kind][]string, len(c.lists))
	for kind, labels := range c.lists {
		out[kind] = slices.Clone(labels)
	}
	return out
}

func checkLabel(kind core.Kind, label string) (string, error) {
	if !kind.IsValid() {
		return "", &ValidationError{Field: "kind", Err: core.ErrInvalidKind}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", &ValidationError{Field: "category", Err: errBlankLabel}
	}
	return label, nil
}

// AddCategory adds label to the kind's category list.
func (s *Store) AddCategory(kind core.Kind, label string) (bool, error) {
	return s.categories.Add(kind, label)
}

// RemoveCategory removes label from the kind's category list.
func (s *Store) RemoveCategory(kind core.Kind, label string) (bool, error) {
	return s.categories.Remove(kind, label)
}

// Categories returns a copy of the category set.
func (s *Store) Categories() map[core.Kind][]string {
	return s.categories.Snapshot()
}
