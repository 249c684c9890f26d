package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth identifies a calendar month, printed as 2025-06.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthlySummary totals one calendar month of the ledger.
type MonthlySummary struct {
	Month        YearMonth       `json:"month"`
	IncomeTotal  decimal.Decimal `json:"incomeTotal"`
	ExpenseTotal decimal.Decimal `json:"expenseTotal"`
	LoanTotal    decimal.Decimal `json:"loanTotal"` // every loan amount, regardless of direction
	NetTotal     decimal.Decimal `json:"netTotal"`
	Count        int             `json:"count"`
}

// CategoryExpense is one row of the expense breakdown.
type CategoryExpense struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentageOfTotal"`
}

// LoanStatus aggregates loans over the whole ledger. Outstanding is not clamped.
type LoanStatus struct {
	Lent        decimal.Decimal `json:"lent"`
	Returned    decimal.Decimal `json:"returned"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// ParseYearMonth parses the YYYY-MM form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month d falls in.
func YearMonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (ym YearMonth) Contains(d Date) bool {
	return d.Year() == ym.Year && d.Month() == ym.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
