package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
	"moneycontrol/internal/storage"
)

// transactionRecord is the persisted shape of a transaction. Amounts are
// decimal strings and dates YYYY-MM-DD.
type transactionRecord struct {
	ID       string          `json:"id"`
	Kind     core.Kind       `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     core.Date       `json:"date"`
	Note     string          `json:"note,omitempty"`
}

// Snapshot is everything persisted for one ledger.
type Snapshot struct {
	Transactions []core.Transaction
	// Balance is the persisted cached balance, nil when it was never saved.
	Balance    *decimal.Decimal
	Categories map[core.Kind][]string
}

func encodeTransactions(txs []core.Transaction) ([]byte, error) {
	records := make([]transactionRecord, len(txs))
	for i, t := range txs {
		records[i] = transactionRecord{
			ID:       t.ID,
			Kind:     t.Kind,
			Amount:   t.Amount,
			Category: t.Category,
			Date:     t.Date,
			Note:     t.Note,
		}
	}
	return json.Marshal(records)
}

func decodeTransactions(data []byte) ([]core.Transaction, error) {
	var records []transactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	txs := make([]core.Transaction, len(records))
	for i, r := range records {
		txs[i] = core.Transaction{
			ID: r.ID,
			Fields: core.Fields{
				Kind:     r.Kind,
				Amount:   r.Amount,
				Category: r.Category,
				Date:     r.Date,
				Note:     r.Note,
			},
		}
	}
	return txs, nil
}

func encodeBalance(b decimal.Decimal) ([]byte, error) {
	return json.Marshal(b)
}

func decodeBalance(data []byte) (decimal.Decimal, error) {
	var b decimal.Decimal
	err := json.Unmarshal(data, &b)
	return b, err
}

func encodeCategories(c map[core.Kind][]string) ([]byte, error) {
	return json.Marshal(c)
}

func decodeCategories(data []byte) (map[core.Kind][]string, error) {
	var c map[core.Kind][]string
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadSnapshot reads the three ledger keys from kv. Missing keys leave the
// matching Snapshot field empty.
func LoadSnapshot(ctx context.Context, kv storage.KeyValue) (*Snapshot, error) {
	snap := &Snapshot{}

	data, ok, err := kv.Load(ctx, storage.KeyTransactions)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyTransactions, err)
	}
	if ok {
		if snap.Transactions, err = decodeTransactions(data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", storage.KeyTransactions, err)
		}
	}

	data, ok, err = kv.Load(ctx, storage.KeyBalance)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyBalance, err)
	}
	if ok {
		b, err := decodeBalance(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", storage.KeyBalance, err)
		}
		snap.Balance = &b
	}

	data, ok, err = kv.Load(ctx, storage.KeyCustomCategories)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyCustomCategories, err)
	}
	if ok {
		if snap.Categories, err = decodeCategories(data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", storage.KeyCustomCategories, err)
		}
	}

	return snap, nil
}

// SaveSnapshot writes all three keys. It keeps going after a failed key and
// returns the first error.
func SaveSnapshot(ctx context.Context, kv storage.KeyValue, txs []core.Transaction, balance decimal.Decimal, categories map[core.Kind][]string) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if data, err := encodeTransactions(txs); err != nil {
		record(fmt.Errorf("encode %s: %w", storage.KeyTransactions, err))
	} else {
		record(wrapSave(storage.KeyTransactions, kv.Save(ctx, storage.KeyTransactions, data)))
	}

	if data, err := encodeBalance(balance); err != nil {
		record(fmt.Errorf("encode %s: %w", storage.KeyBalance, err))
	} else {
		record(wrapSave(storage.KeyBalance, kv.Save(ctx, storage.KeyBalance, data)))
	}

	if data, err := encodeCategories(categories); err != nil {
		record(fmt.Errorf("encode %s: %w", storage.KeyCustomCategories, err))
	} else {
		record(wrapSave(storage.KeyCustomCategories, kv.Save(ctx, storage.KeyCustomCategories, data)))
	}

	return firstErr
}

func wrapSave(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("save %s: %w", key, err)
}
