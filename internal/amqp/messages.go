package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger event operations.
const (
	EventTransactionAdded   = "transaction.added"
	EventTransactionEdited  = "transaction.edited"
	EventTransactionRemoved = "transaction.removed"
	EventBalanceRecomputed  = "balance.recomputed"
	EventCategoriesChanged  = "categories.changed"
)

// LedgerEventMessage announces a committed ledger mutation. It carries only
// identifiers and the resulting balance; consumers reload the snapshot.
type LedgerEventMessage struct {
	Operation     string          `json:"operation"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewLedgerEventMessage creates a new event stamped with the current time.
func NewLedgerEventMessage(operation, transactionID string, balance decimal.Decimal) *LedgerEventMessage {
	return &LedgerEventMessage{
		Operation:     operation,
		TransactionID: transactionID,
		Balance:       balance,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
