// Package ledger keeps the list of transactions and the balance derived from
// it as one consistent unit.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines serialize access themselves (see services.LedgerService).
package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
)

type Store struct {
	txs        []core.Transaction
	index      map[string]int // id -> position in txs
	balance    decimal.Decimal
	categories *CategorySet
	newID      func() string
}

type Option func(*Store)

// WithIDGenerator replaces the default UUIDv7 id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithCategories seeds the store with a category set instead of the defaults.
func WithCategories(c *CategorySet) Option {
	return func(s *Store) {
		s.categories = c
	}
}

// New returns an empty store with the default category set.
func New(opts ...Option) *Store {
	s := &Store{
		index:      make(map[string]int),
		balance:    decimal.Zero,
		categories: DefaultCategories(),
		newID:      newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore rebuilds a store from previously persisted transactions. Every record
// is validated, ids must be unique and the balance is recomputed from scratch.
func Restore(txs []core.Transaction, opts ...Option) (*Store, error) {
	s := New(opts...)
	s.txs = make([]core.Transaction, 0, len(txs))
	for i, t := range txs {
		if t.ID == "" {
			return nil, fmt.Errorf("transaction %d: empty id", i)
		}
		if _, dup := s.index[t.ID]; dup {
			return nil, fmt.Errorf("transaction %d: duplicate id %q", i, t.ID)
		}
		if err := validate(t.Fields); err != nil {
			return nil, fmt.Errorf("transaction %q: %w", t.ID, err)
		}
		s.index[t.ID] = len(s.txs)
		s.txs = append(s.txs, t)
	}
	s.RecomputeBalance()
	return s, nil
}

func newUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Add records a new transaction and applies its effect to the balance.
func (s *Store) Add(f core.Fields) (core.Transaction, error) {
	if err := validate(f); err != nil {
		return core.Transaction{}, err
	}
	id := s.newID()
	if _, dup := s.index[id]; dup {
		return core.Transaction{}, fmt.Errorf("id generator returned duplicate id %q", id)
	}
	t := core.Transaction{ID: id, Fields: f}
	s.index[id] = len(s.txs)
	s.txs = append(s.txs, t)
	s.balance = s.balance.Add(f.Effect())
	return t, nil
}

// Edit replaces every field of the transaction with id, keeping its id and
// position. The old effect is reversed and the new one applied in one step.
func (s *Store) Edit(id string, f core.Fields) (core.Transaction, error) {
	pos, ok := s.index[id]
	if !ok {
		return core.Transaction{}, &NotFoundError{ID: id}
	}
	if err := validate(f); err != nil {
		return core.Transaction{}, err
	}
	old := s.txs[pos]
	updated := core.Transaction{ID: id, Fields: f}
	s.balance = s.balance.Sub(old.Effect()).Add(f.Effect())
	s.txs[pos] = updated
	return updated, nil
}

// Remove deletes the transaction with id and reverses its effect.
func (s *Store) Remove(id string) error {
	pos, ok := s.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	old := s.txs[pos]
	s.balance = s.balance.Sub(old.Effect())
	s.txs = append(s.txs[:pos], s.txs[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.txs); i++ {
		s.index[s.txs[i].ID] = i
	}
	return nil
}

// Get returns the transaction with id.
func (s *Store) Get(id string) (core.Transaction, error) {
	pos, ok := s.index[id]
	if !ok {
		return core.Transaction{}, &NotFoundError{ID: id}
	}
	return s.txs[pos], nil
}

// RecomputeBalance folds the transaction list with the sign rule and replaces
// the cached balance with the result.
func (s *Store) RecomputeBalance() decimal.Decimal {
	s.balance = Fold(s.txs)
	return s.balance
}

// Balance returns the cached balance.
func (s *Store) Balance() decimal.Decimal {
	return s.balance
}

// Len returns the number of transactions.
func (s *Store) Len() int {
	return len(s.txs)
}

// Fold sums the signed effect of every transaction.
func Fold(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Effect())
	}
	return total
}
