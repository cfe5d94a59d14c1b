package domain

import (
	"testing"
)

func TestExecutorPeriodTotals(t *testing.T) {
	t.Parallel()

	commission := CategoryBankCommission
	profit := CategoryProfit

	entries := []*LedgerEntry{
		{Category: CategoryProfit, Amount: d("300"), Labor: d("200"), PartsProfit: d("100")},
		{Category: CategoryBankCommission, Amount: d("-4.5")},
		{Category: CategoryProfit, Amount: d("150"), Labor: d("150")},
		// card payment switched to cash: commission and profit reversed
		{Category: CategoryCancellation, Amount: d("4.5"), ReversedCategory: &commission},
		{Category: CategoryCancellation, Amount: d("-150"), Labor: d("-150"), ReversedCategory: &profit},
		{Category: CategoryPurchase, Amount: d("-80")},
	}

	var totals ExecutorPeriodTotals
	for _, e := range entries {
		totals.Add(e)
	}

	if !totals.LaborTotal.Equal(d("200")) {
		t.Fatalf("expected labor 200, got %s", totals.LaborTotal)
	}
	if !totals.PartsProfit.Equal(d("100")) {
		t.Fatalf("expected parts 100, got %s", totals.PartsProfit)
	}
	if !totals.CommissionTotal.Equal(d("0")) {
		t.Fatalf("expected commission 0, got %s", totals.CommissionTotal)
	}
	if totals.EntryCount != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), totals.EntryCount)
	}
}

func TestExecutorShare(t *testing.T) {
	t.Parallel()

	totals := ExecutorPeriodTotals{
		LaborTotal:      d("1000"),
		CommissionTotal: d("15"),
	}

	if got := totals.Share(d("40")); !got.Equal(d("394")) {
		t.Fatalf("expected share 394, got %s", got)
	}
	if got := totals.Share(d("0")); !got.IsZero() {
		t.Fatalf("expected zero share, got %s", got)
	}
}
