package ledger

import (
	"errors"
	"fmt"

	"moneycontrol/internal/core"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("transaction not found")
)

// ValidationError reports a precondition on kind, amount, category or date
// that was not met. The store is unchanged when one is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, ErrValidation}
}

// NotFoundError reports an operation on a transaction id the store does not hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func validate(f core.Fields) error {
	err := f.Validate()
	if err == nil {
		return nil
	}
	return &ValidationError{Field: fieldOf(err), Err: err}
}

func fieldOf(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidKind):
		return "kind"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrEmptyCategory), errors.Is(err, core.ErrInvalidLoanCategory):
		return "category"
	case errors.Is(err, core.ErrInvalidDate):
		return "date"
	default:
		return "fields"
	}
}
