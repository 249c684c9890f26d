package http

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
)

// transactionRequest is the body of POST and PUT /api/transactions. Amount
// may be a JSON number or a string using "." or "," as decimal separator.
type transactionRequest struct {
	Kind     string          `json:"kind"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
	Note     string          `json:"note"`
}

type transactionResponse struct {
	ID       string          `json:"id"`
	Kind     core.Kind       `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     core.Date       `json:"date"`
	Note     string          `json:"note,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		Kind:     t.Kind,
		Amount:   t.Amount,
		Category: t.Category,
		Date:     t.Date,
		Note:     t.Note,
	}
}

type mutationResponse struct {
	Transaction *transactionResponse `json:"transaction,omitempty"`
	Balance     decimal.Decimal      `json:"balance"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type listResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Count        int                   `json:"count"`
}

type expenseBreakdownResponse struct {
	Month      string                 `json:"month,omitempty"`
	Categories []core.CategoryExpense `json:"categories"`
}

type categoryRequest struct {
	Label string `json:"label"`
}

type categoryChangeResponse struct {
	Kind       core.Kind              `json:"kind"`
	Label      string                 `json:"label"`
	Added      *bool                  `json:"added,omitempty"`
	Removed    *bool                  `json:"removed,omitempty"`
	Categories map[core.Kind][]string `json:"categories"`
}

type exportResponse struct {
	Ref string `json:"ref"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
