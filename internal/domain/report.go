package domain

import (
	"github.com/shopspring/decimal"
)

// ExecutorPeriodTotals aggregates an executor's entries over a period.
type ExecutorPeriodTotals struct {
	ExecutorName    string
	LaborTotal      decimal.Decimal
	PartsProfit     decimal.Decimal
	CommissionTotal decimal.Decimal
	EntryCount      int
}

// Add folds one entry into the totals. Reversal entries carry negated
// breakdowns, so cancelled work nets out.
func (t *ExecutorPeriodTotals) Add(e *LedgerEntry) {
	switch e.Category {
	case CategoryProfit, CategoryCancellation, CategoryRefund:
		t.LaborTotal = t.LaborTotal.Add(e.Labor)
		t.PartsProfit = t.PartsProfit.Add(e.PartsProfit)
	}

	switch {
	case e.Category == CategoryBankCommission:
		t.CommissionTotal = t.CommissionTotal.Add(e.Amount.Neg())
	case e.Category == CategoryCancellation && e.ReversedCategory != nil && *e.ReversedCategory == CategoryBankCommission:
		t.CommissionTotal = t.CommissionTotal.Sub(e.Amount)
	}
	t.EntryCount++
}

// Share returns (labor - commission) x salaryPercent / 100, rounded to the
// minor unit.
func (t ExecutorPeriodTotals) Share(salaryPercent decimal.Decimal) decimal.Decimal {
	return t.LaborTotal.Sub(t.CommissionTotal).
		Mul(salaryPercent).
		Div(decimal.NewFromInt(100)).
		Round(MoneyPlaces)
}
