// Package storage defines the key-value port the ledger snapshot is persisted
// through. Implementations live in the memory, sqlite and redis subpackages.
package storage

import "context"

// Logical keys of the ledger snapshot.
const (
	KeyTransactions     = "transactions"
	KeyBalance          = "balance"
	KeyCustomCategories = "customCategories"
)

// KeyValue stores opaque serialized values under string keys.
type KeyValue interface {
	// Load returns the value for key; ok is false when the key was never saved.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Save creates or replaces the value for key.
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}
