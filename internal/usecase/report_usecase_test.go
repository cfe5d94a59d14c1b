package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

func decimalInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func TestReportUseCase_ExecutorPeriodTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	march := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)

	pay := func(receipt, total, labor string, to domain.PaymentState, executor string, at time.Time) {
		l := d(labor)
		_, err := f.payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{
			ReceiptID:    receipt,
			Total:        d(total),
			Labor:        &l,
			From:         unpaid,
			To:           to,
			ExecutorName: ptr(executor),
			ExecutedAt:   &at,
		})
		require.NoError(t, err)
	}

	pay("1", "300", "200", paidCard, "Ivan", march)
	pay("2", "100", "100", paidCash, "Ivan", march)
	pay("3", "500", "500", paidCash, "Olga", march)
	pay("4", "1000", "1000", paidCard, "Ivan", april)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	totals, err := f.reports.ComputeExecutorPeriodTotals(ctx, "Ivan", from, to)
	require.NoError(t, err)
	assert.True(t, totals.LaborTotal.Equal(d("300")), "labor %s", totals.LaborTotal)
	assert.True(t, totals.PartsProfit.Equal(d("100")), "parts %s", totals.PartsProfit)
	assert.True(t, totals.CommissionTotal.Equal(d("4.5")), "commission %s", totals.CommissionTotal)

	// (300 - 4.5) * 50 / 100
	assert.True(t, totals.Share(d("50")).Equal(d("147.75")))

	_, err = f.reports.ComputeExecutorPeriodTotals(ctx, "Ivan", to, from)
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestReportUseCase_CancelledWorkNetsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{
		ReceiptID: "1", Total: d("200"), From: unpaid, To: paidCard, ExecutorName: ptr("Ivan"),
	})
	require.NoError(t, err)
	f.pay(t, "1", "200", paidCard, unpaid)

	totals, err := f.reports.ComputeExecutorPeriodTotals(ctx, "Ivan", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, totals.LaborTotal.IsZero())
	assert.True(t, totals.CommissionTotal.IsZero())
}
