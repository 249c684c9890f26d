package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindLoan    Kind = "loan"
)

// Loan categories. A loan's category decides the direction of its balance effect.
const (
	LoanLent      = "Lent"
	LoanRepayment = "Repayment"
	LoanReturned  = "Returned"
)

const dateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	// Fields are the user-editable parts of a transaction.
	Fields struct {
		Kind     Kind
		Amount   decimal.Decimal
		Category string
		Date     Date
		Note     string // recipient or observation, optional
	}

	Transaction struct {
		ID string
		Fields
	}
)

var (
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidLoanCategory = errors.New("invalid loan category")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidYearMonth    = errors.New("invalid year-month")
)

// loanSigns maps every accepted loan label to its sign. The Spanish labels are
// what older exports carry.
var loanSigns = map[string]int{
	LoanLent:      -1,
	LoanRepayment: +1,
	LoanReturned:  +1,
	"Prestado":    -1,
	"Abono":       +1,
	"Devolución":  +1,
}

// Kinds returns every valid kind in display order.
func Kinds() []Kind {
	return []Kind{KindIncome, KindExpense, KindLoan}
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	switch k {
	case KindIncome, KindExpense, KindLoan:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// IsLoanCategory reports whether label belongs to the closed loan category set.
func IsLoanCategory(label string) bool {
	_, ok := loanSigns[label]
	return ok
}

// IsLoanOutflow reports whether a loan category moves money out (money lent).
func IsLoanOutflow(label string) bool {
	return loanSigns[label] < 0
}

// Sign returns +1 or -1 for the balance effect of a (kind, category) pair, and
// 0 when the pair is not valid.
func Sign(kind Kind, category string) int {
	switch kind {
	case KindIncome:
		return +1
	case KindExpense:
		return -1
	case KindLoan:
		return loanSigns[category]
	default:
		return 0
	}
}

// Effect is the signed contribution of f to the balance.
func (f Fields) Effect() decimal.Decimal {
	return f.Amount.Mul(decimal.NewFromInt(int64(Sign(f.Kind, f.Category))))
}

func (f Fields) Validate() error {
	if !f.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !f.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(f.Category) == "" {
		return ErrEmptyCategory
	}
	if f.Kind == KindLoan && !IsLoanCategory(f.Category) {
		return ErrInvalidLoanCategory
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Compare orders dates by calendar day.
func (d Date) Compare(o Date) int {
	return strings.Compare(d.String(), o.String())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
