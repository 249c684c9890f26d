package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
)

var hundred = decimal.NewFromInt(100)

// MonthlySummary totals the transactions dated in ym.
func (s *Store) MonthlySummary(ym core.YearMonth) core.MonthlySummary {
	sum := core.MonthlySummary{
		Month:        ym,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		LoanTotal:    decimal.Zero,
	}
	for _, t := range s.txs {
		if !ym.Contains(t.Date) {
			continue
		}
		sum.Count++
		switch t.Kind {
		case core.KindIncome:
			sum.IncomeTotal = sum.IncomeTotal.Add(t.Amount)
		case core.KindExpense:
			sum.ExpenseTotal = sum.ExpenseTotal.Add(t.Amount)
		case core.KindLoan:
			sum.LoanTotal = sum.LoanTotal.Add(t.Amount)
		}
	}
	sum.NetTotal = sum.IncomeTotal.Sub(sum.ExpenseTotal).Sub(sum.LoanTotal)
	return sum
}

// ExpenseByCategory groups expenses by category, over the whole ledger when
// ym is nil. Rows come largest first; percentages are rounded to one decimal
// and are all zero when there is nothing to split.
func (s *Store) ExpenseByCategory(ym *core.YearMonth) []core.CategoryExpense {
	totals := make(map[string]decimal.Decimal)
	var order []string
	total := decimal.Zero
	for _, t := range s.txs {
		if t.Kind != core.KindExpense {
			continue
		}
		if ym != nil && !ym.Contains(t.Date) {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
			totals[t.Category] = decimal.Zero
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
		total = total.Add(t.Amount)
	}

	rows := make([]core.CategoryExpense, 0, len(order))
	for _, category := range order {
		amount := totals[category]
		pct := decimal.Zero
		if total.IsPositive() {
			pct = amount.Div(total).Mul(hundred).Round(1)
		}
		rows = append(rows, core.CategoryExpense{Category: category, Amount: amount, Percentage: pct})
	}
	slices.SortStableFunc(rows, func(a, b core.CategoryExpense) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return rows
}

// LoanStatus sums money lent against money that came back.
func (s *Store) LoanStatus() core.LoanStatus {
	st := core.LoanStatus{Lent: decimal.Zero, Returned: decimal.Zero}
	for _, t := range s.txs {
		if t.Kind != core.KindLoan {
			continue
		}
		if core.IsLoanOutflow(t.Category) {
			st.Lent = st.Lent.Add(t.Amount)
		} else {
			st.Returned = st.Returned.Add(t.Amount)
		}
	}
	st.Outstanding = st.Lent.Sub(st.Returned)
	return st
}
