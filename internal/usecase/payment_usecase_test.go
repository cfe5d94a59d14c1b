package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

var (
	unpaid   = domain.Unpaid()
	paidCash = domain.Paid(domain.PaymentMethodCash)
	paidCard = domain.Paid(domain.PaymentMethodCard)
)

func TestPaymentUseCase_WorkedExample(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	res := f.pay(t, "42", "300", unpaid, paidCard)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryProfit, domain.PaymentMethodCard, "300", "1000", "800"},
		{domain.CategoryBankCommission, domain.PaymentMethodCard, "-4.5", "1000", "795.5"},
	})
	assert.Equal(t, paidCard, res.State)

	res = f.pay(t, "42", "300", paidCard, paidCash)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryCancellation, domain.PaymentMethodCard, "-300", "1000", "495.5"},
		{domain.CategoryCancellation, domain.PaymentMethodCard, "4.5", "1000", "500"},
		{domain.CategoryProfit, domain.PaymentMethodCash, "300", "1300", "500"},
	})
	f.requireBalances(t, "1300", "500")

	// reversals point at what they undo
	profitID := *res.Entries[0].RelatedEntryID
	commissionID := *res.Entries[1].RelatedEntryID
	profit, err := f.ledger.GetEntry(context.Background(), profitID)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryProfit, profit.Category)
	commission, err := f.ledger.GetEntry(context.Background(), commissionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBankCommission, commission.Category)
	assert.Equal(t, domain.CategoryBankCommission, *res.Entries[1].ReversedCategory)

	recon, err := f.editor.Reconcile(context.Background(), usecase.ReconcileInput{
		ActualCash: d("1290"),
		ActualCard: d("500"),
	})
	require.NoError(t, err)
	require.NotNil(t, recon.Correction)
	assert.True(t, recon.Correction.Amount.Equal(d("-10")))
	assert.Equal(t, domain.PaymentMethodMixed, recon.Correction.PaymentMethod)
	f.requireBalances(t, "1290", "500")

	entries, err := f.ledger.GetEntriesForReceipt(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID, "receipt entries must be oldest first")
	}

	f.requireConsistent(t)
}

func TestPaymentUseCase_TransitionTable(t *testing.T) {
	tests := []struct {
		name      string
		setup     []domain.PaymentState // states walked through before the transition
		from, to  domain.PaymentState
		want      []wantEntry
		cash      string
		card      string
	}{
		{
			name: "unpaid to cash",
			from: unpaid, to: paidCash,
			want: []wantEntry{
				{domain.CategoryProfit, domain.PaymentMethodCash, "200", "1200", "500"},
			},
			cash: "1200", card: "500",
		},
		{
			name: "unpaid to card",
			from: unpaid, to: paidCard,
			want: []wantEntry{
				{domain.CategoryProfit, domain.PaymentMethodCard, "200", "1000", "700"},
				{domain.CategoryBankCommission, domain.PaymentMethodCard, "-3", "1000", "697"},
			},
			cash: "1000", card: "697",
		},
		{
			name:  "cash to card",
			setup: []domain.PaymentState{unpaid, paidCash},
			from:  paidCash, to: paidCard,
			want: []wantEntry{
				{domain.CategoryCancellation, domain.PaymentMethodCash, "-200", "1000", "500"},
				{domain.CategoryProfit, domain.PaymentMethodCard, "200", "1000", "700"},
				{domain.CategoryBankCommission, domain.PaymentMethodCard, "-3", "1000", "697"},
			},
			cash: "1000", card: "697",
		},
		{
			name:  "card to cash",
			setup: []domain.PaymentState{unpaid, paidCard},
			from:  paidCard, to: paidCash,
			want: []wantEntry{
				{domain.CategoryCancellation, domain.PaymentMethodCard, "-200", "1000", "497"},
				{domain.CategoryCancellation, domain.PaymentMethodCard, "3", "1000", "500"},
				{domain.CategoryProfit, domain.PaymentMethodCash, "200", "1200", "500"},
			},
			cash: "1200", card: "500",
		},
		{
			name:  "cash to unpaid",
			setup: []domain.PaymentState{unpaid, paidCash},
			from:  paidCash, to: unpaid,
			want: []wantEntry{
				{domain.CategoryCancellation, domain.PaymentMethodCash, "-200", "1000", "500"},
			},
			cash: "1000", card: "500",
		},
		{
			name:  "card to unpaid",
			setup: []domain.PaymentState{unpaid, paidCard},
			from:  paidCard, to: unpaid,
			want: []wantEntry{
				{domain.CategoryCancellation, domain.PaymentMethodCard, "-200", "1000", "497"},
				{domain.CategoryCancellation, domain.PaymentMethodCard, "3", "1000", "500"},
			},
			cash: "1000", card: "500",
		},
		{
			name: "unpaid to unpaid",
			from: unpaid, to: unpaid,
			cash: "1000", card: "500",
		},
		{
			name: "paid without ledger payment reverses nothing",
			from: paidCard, to: unpaid,
			cash: "1000", card: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "1000", "500")

			for i := 1; i < len(tt.setup); i++ {
				f.pay(t, "7", "200", tt.setup[i-1], tt.setup[i])
			}

			res := f.pay(t, "7", "200", tt.from, tt.to)
			requireEntries(t, res.Entries, tt.want)
			f.requireBalances(t, tt.cash, tt.card)
			f.requireConsistent(t)
		})
	}
}

func TestPaymentUseCase_ReversalConservation(t *testing.T) {
	for _, method := range []domain.PaymentMethod{domain.PaymentMethodCash, domain.PaymentMethodCard} {
		t.Run(string(method), func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "1000", "500")

			f.pay(t, "1", "123.45", unpaid, domain.Paid(method))
			f.pay(t, "1", "123.45", domain.Paid(method), unpaid)

			f.requireBalances(t, "1000", "500")
			f.requireConsistent(t)
		})
	}
}

func TestPaymentUseCase_CommissionExistence(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "0", "0")

	f.pay(t, "A", "100", unpaid, paidCard)
	f.pay(t, "B", "100", unpaid, paidCash)
	f.pay(t, "C", "100", unpaid, paidCard)
	f.pay(t, "C", "100", paidCard, paidCash)

	// net commission per receipt: card-paid A keeps one, C's is cancelled
	for receipt, want := range map[string]string{"A": "-1.5", "B": "0", "C": "0"} {
		entries, err := f.ledger.GetEntriesForReceipt(context.Background(), receipt)
		require.NoError(t, err)

		net := d("0")
		for _, e := range entries {
			if e.Category == domain.CategoryBankCommission {
				net = net.Add(e.Amount)
			}
			if e.Category == domain.CategoryCancellation && *e.ReversedCategory == domain.CategoryBankCommission {
				net = net.Add(e.Amount)
			}
		}
		assert.Truef(t, net.Equal(d(want)), "receipt %s: net commission %s, want %s", receipt, net, want)
	}
}

func TestPaymentUseCase_DoubleCancelIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	f.pay(t, "9", "50", unpaid, paidCard)
	first := f.pay(t, "9", "50", paidCard, unpaid)
	require.Len(t, first.Entries, 2)

	second := f.pay(t, "9", "50", paidCard, unpaid)
	assert.Empty(t, second.Entries)
	f.requireBalances(t, "1000", "500")
}

func TestPaymentUseCase_TotalChangedWhilePaid(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	f.pay(t, "5", "300", unpaid, paidCash)

	same := f.pay(t, "5", "300", paidCash, paidCash)
	assert.Empty(t, same.Entries)

	changed := f.pay(t, "5", "350", paidCash, paidCash)
	requireEntries(t, changed.Entries, []wantEntry{
		{domain.CategoryCancellation, domain.PaymentMethodCash, "-300", "1000", "500"},
		{domain.CategoryProfit, domain.PaymentMethodCash, "350", "1350", "500"},
	})
	f.requireConsistent(t)
}

func TestPaymentUseCase_CommissionUsesSettings(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "0", "1000")

	_, err := f.config.UpdateSettings(context.Background(), domain.Settings{
		CardCommissionPercent: d("2.75"),
		CashRegisterEnabled:   true,
	})
	require.NoError(t, err)

	res := f.pay(t, "1", "99.99", unpaid, paidCard)
	require.Len(t, res.Entries, 2)
	assert.True(t, res.Entries[1].Amount.Equal(d("-2.75")))
}

func TestPaymentUseCase_DisabledRegister(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	before := f.count(t)

	_, err := f.config.UpdateSettings(context.Background(), domain.Settings{
		CardCommissionPercent: d("1.5"),
		CashRegisterEnabled:   false,
	})
	require.NoError(t, err)

	res := f.pay(t, "1", "100", unpaid, paidCard)
	assert.True(t, res.Skipped)
	assert.Equal(t, paidCard, res.State)

	refund, err := f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "1", Amount: d("100")})
	require.NoError(t, err)
	assert.True(t, refund.Skipped)

	del, err := f.payments.DeleteReceipt(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, del.Skipped)

	assert.Equal(t, before, f.count(t))
	f.requireBalances(t, "1000", "500")
}

func TestPaymentUseCase_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input usecase.ReceiptTransitionInput
		want  error
	}{
		{"missing receipt", usecase.ReceiptTransitionInput{Total: d("10"), From: unpaid, To: paidCash}, domain.ErrMissingReceipt},
		{"zero total", usecase.ReceiptTransitionInput{ReceiptID: "1", Total: d("0"), From: unpaid, To: paidCash}, domain.ErrInvalidAmount},
		{"negative total", usecase.ReceiptTransitionInput{ReceiptID: "1", Total: d("-5"), From: unpaid, To: paidCash}, domain.ErrInvalidAmount},
		{"mixed payment", usecase.ReceiptTransitionInput{ReceiptID: "1", Total: d("10"), From: unpaid, To: domain.Paid(domain.PaymentMethodMixed)}, domain.ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.ApplyTransition(ctx, tt.input)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, f.count(t))
}

func TestPaymentUseCase_DeleteReceipt(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	f.pay(t, "77", "300", unpaid, paidCard)

	res, err := f.payments.DeleteReceipt(context.Background(), "77")
	require.NoError(t, err)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryCancellation, domain.PaymentMethodCard, "-300", "1000", "495.5"},
		{domain.CategoryCancellation, domain.PaymentMethodCard, "4.5", "1000", "500"},
	})

	// unpaid receipt: nothing to reverse
	res, err = f.payments.DeleteReceipt(context.Background(), "78")
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
}

func TestPaymentUseCase_FullRefund(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	f.pay(t, "42", "300", unpaid, paidCard)

	res, err := f.payments.RefundReceipt(context.Background(), usecase.RefundInput{
		ReceiptID: "42",
		Amount:    d("300"),
		Reason:    "customer returned device",
	})
	require.NoError(t, err)
	assert.True(t, res.Full)
	assert.False(t, res.CommissionKept)
	assert.Equal(t, unpaid, res.State)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryRefund, domain.PaymentMethodCard, "-300", "1000", "495.5"},
		{domain.CategoryCancellation, domain.PaymentMethodCard, "4.5", "1000", "500"},
	})
	assert.Equal(t, "customer returned device", res.Entries[0].Description)
	f.requireBalances(t, "1000", "500")

	_, err = f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "42", Amount: d("1")})
	require.ErrorIs(t, err, domain.ErrNothingToRefund)
}

func TestPaymentUseCase_PartialRefund(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")

	labor := d("200")
	_, err := f.payments.ApplyTransition(context.Background(), usecase.ReceiptTransitionInput{
		ReceiptID:    "42",
		Total:        d("300"),
		From:         unpaid,
		To:           paidCard,
		ExecutorName: ptr("Ivan"),
		Labor:        &labor,
	})
	require.NoError(t, err)

	res, err := f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "42", Amount: d("150")})
	require.NoError(t, err)
	assert.False(t, res.Full)
	assert.True(t, res.CommissionKept)
	assert.Equal(t, unpaid, res.State)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryRefund, domain.PaymentMethodCard, "-150", "1000", "645.5"},
	})
	assert.True(t, res.Entries[0].Labor.Equal(d("-100")))
	assert.True(t, res.Entries[0].PartsProfit.Equal(d("-50")))
	assert.Equal(t, "Ivan", *res.Entries[0].ExecutorName)

	// commission stays in place after a partial refund
	f.requireBalances(t, "1000", "645.5")
	f.requireConsistent(t)
}

func TestPaymentUseCase_AfterPartialRefund(t *testing.T) {
	ctx := context.Background()

	partiallyRefunded := func(t *testing.T) *fixture {
		t.Helper()
		f := newFixture(t)
		f.seed(t, "1000", "500")
		f.pay(t, "42", "300", unpaid, paidCard)
		_, err := f.payments.RefundReceipt(ctx, usecase.RefundInput{ReceiptID: "42", Amount: d("100")})
		require.NoError(t, err)
		f.requireBalances(t, "1000", "695.5")
		return f
	}

	t.Run("cash repayment cancelled", func(t *testing.T) {
		f := partiallyRefunded(t)
		f.pay(t, "42", "300", unpaid, paidCash)

		res := f.pay(t, "42", "300", paidCash, unpaid)
		requireEntries(t, res.Entries, []wantEntry{
			{domain.CategoryCancellation, domain.PaymentMethodCash, "-300", "1000", "695.5"},
		})
		f.requireConsistent(t)
	})

	t.Run("cash repayment moved to card", func(t *testing.T) {
		f := partiallyRefunded(t)
		f.pay(t, "42", "300", unpaid, paidCash)

		res := f.pay(t, "42", "300", paidCash, paidCard)
		requireEntries(t, res.Entries, []wantEntry{
			{domain.CategoryCancellation, domain.PaymentMethodCash, "-300", "1000", "695.5"},
			{domain.CategoryProfit, domain.PaymentMethodCard, "300", "1000", "995.5"},
			{domain.CategoryBankCommission, domain.PaymentMethodCard, "-4.5", "1000", "991"},
		})
		f.requireConsistent(t)
	})

	t.Run("card repayment deleted", func(t *testing.T) {
		f := partiallyRefunded(t)
		repaid := f.pay(t, "42", "300", unpaid, paidCard)
		commissionID := repaid.Entries[1].ID

		res, err := f.payments.DeleteReceipt(ctx, "42")
		require.NoError(t, err)
		requireEntries(t, res.Entries, []wantEntry{
			{domain.CategoryCancellation, domain.PaymentMethodCard, "-300", "1000", "691"},
			{domain.CategoryCancellation, domain.PaymentMethodCard, "4.5", "1000", "695.5"},
		})
		assert.Equal(t, commissionID, *res.Entries[1].RelatedEntryID)
		f.requireConsistent(t)
	})

	t.Run("cash repayment fully refunded", func(t *testing.T) {
		f := partiallyRefunded(t)
		f.pay(t, "42", "200", unpaid, paidCash)

		res, err := f.payments.RefundReceipt(ctx, usecase.RefundInput{ReceiptID: "42", Amount: d("200")})
		require.NoError(t, err)
		assert.True(t, res.Full)
		assert.False(t, res.CommissionKept)
		requireEntries(t, res.Entries, []wantEntry{
			{domain.CategoryRefund, domain.PaymentMethodCash, "-200", "1000", "695.5"},
		})
		f.requireConsistent(t)
	})

	t.Run("deleted without repayment", func(t *testing.T) {
		f := partiallyRefunded(t)

		res, err := f.payments.DeleteReceipt(ctx, "42")
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		f.requireBalances(t, "1000", "695.5")
	})
}

// lockOrderRepo records the order of the writer-path calls a use case makes.
type lockOrderRepo struct {
	usecase.EntryRepository
	mu    sync.Mutex
	calls []string
}

func (r *lockOrderRepo) note(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *lockOrderRepo) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls
	r.calls = nil
	return calls
}

func (r *lockOrderRepo) LockTail(ctx context.Context, tx usecase.Transaction) (domain.Balances, error) {
	r.note("LockTail")
	return r.EntryRepository.LockTail(ctx, tx)
}

func (r *lockOrderRepo) LatestByReceiptTx(ctx context.Context, tx usecase.Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error) {
	r.note("LatestByReceiptTx")
	return r.EntryRepository.LatestByReceiptTx(ctx, tx, receiptID, category)
}

func (r *lockOrderRepo) IsReferencedTx(ctx context.Context, tx usecase.Transaction, id int64) (bool, error) {
	r.note("IsReferencedTx")
	return r.EntryRepository.IsReferencedTx(ctx, tx, id)
}

// Stores that take the writer lock lazily must see it before the payment
// lookups, or two writers can reverse the same payment.
func TestPaymentUseCase_LooksUpPaymentUnderWriterLock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	ctx := context.Background()

	repo := &lockOrderRepo{EntryRepository: f.entries}
	ids := &seqIDGenerator{}
	recorder := usecase.NewRecorder(repo, f.outbox, ids)
	payments := usecase.NewPaymentUseCase(f.txManager, recorder, repo, f.settings, f.audit, ids, nil)

	ops := []struct {
		name string
		run  func() error
	}{
		{"pay", func() error {
			_, err := payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{ReceiptID: "9", Total: d("300"), From: unpaid, To: paidCard})
			return err
		}},
		{"move to cash", func() error {
			_, err := payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{ReceiptID: "9", Total: d("300"), From: paidCard, To: paidCash})
			return err
		}},
		{"refund", func() error {
			_, err := payments.RefundReceipt(ctx, usecase.RefundInput{ReceiptID: "9", Amount: d("50")})
			return err
		}},
		{"repay", func() error {
			_, err := payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{ReceiptID: "9", Total: d("300"), From: unpaid, To: paidCard})
			return err
		}},
		{"delete", func() error {
			_, err := payments.DeleteReceipt(ctx, "9")
			return err
		}},
	}

	for _, op := range ops {
		require.NoError(t, op.run(), op.name)
		calls := repo.take()
		require.NotEmptyf(t, calls, "%s made no ledger calls", op.name)
		assert.Equalf(t, "LockTail", calls[0], "%s: first call was %s in %v", op.name, calls[0], calls)
	}
	f.requireConsistent(t)
}

func TestPaymentUseCase_ConcurrentDeletesReverseOnce(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	f.pay(t, "42", "300", unpaid, paidCard)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reversed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.payments.DeleteReceipt(context.Background(), "42")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			reversed += len(res.Entries)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, reversed)
	f.requireBalances(t, "1000", "500")
	f.requireConsistent(t)
}

func TestPaymentUseCase_ReceiptIDIsTrimmed(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "0")

	f.pay(t, " 42 ", "100", unpaid, paidCash)

	res, err := f.payments.DeleteReceipt(context.Background(), "42")
	require.NoError(t, err)
	requireEntries(t, res.Entries, []wantEntry{
		{domain.CategoryCancellation, domain.PaymentMethodCash, "-100", "1000", "0"},
	})
	assert.Equal(t, "42", *res.Entries[0].RelatedReceiptID)

	entries, err := f.ledger.GetEntriesForReceipt(context.Background(), "\t42")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPaymentUseCase_Breakdown(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		labor     *string
		parts     *string
		wantLabor string
		wantParts string
		wantErr   bool
	}{
		{name: "none given", wantLabor: "300", wantParts: "0"},
		{name: "labor only", labor: ptr("200"), wantLabor: "200", wantParts: "100"},
		{name: "parts only", parts: ptr("120"), wantLabor: "180", wantParts: "120"},
		{name: "both matching", labor: ptr("250"), parts: ptr("50"), wantLabor: "250", wantParts: "50"},
		{name: "both not matching", labor: ptr("250"), parts: ptr("100"), wantErr: true},
		{name: "parts above total", parts: ptr("400"), wantErr: true},
		{name: "negative labor", labor: ptr("-10"), wantErr: true},
		{name: "sub-cent parts", parts: ptr("0.001"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			input := usecase.ReceiptTransitionInput{ReceiptID: "1", Total: d("300"), From: unpaid, To: paidCash}
			if tt.labor != nil {
				input.Labor = ptr(d(*tt.labor))
			}
			if tt.parts != nil {
				input.PartsProfit = ptr(d(*tt.parts))
			}

			res, err := f.payments.ApplyTransition(ctx, input)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				assert.Zero(t, f.count(t))
				return
			}
			require.NoError(t, err)
			profit := res.Entries[0]
			assert.Truef(t, profit.Labor.Equal(d(tt.wantLabor)), "labor: got %s", profit.Labor)
			assert.Truef(t, profit.PartsProfit.Equal(d(tt.wantParts)), "parts: got %s", profit.PartsProfit)
		})
	}
}

func TestPaymentUseCase_RefundErrors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1000", "500")
	f.pay(t, "42", "300", unpaid, paidCash)
	before := f.count(t)

	_, err := f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "42", Amount: d("300.01")})
	require.ErrorIs(t, err, domain.ErrRefundExceedsTotal)

	_, err = f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "43", Amount: d("10")})
	require.ErrorIs(t, err, domain.ErrNothingToRefund)

	_, err = f.payments.RefundReceipt(context.Background(), usecase.RefundInput{ReceiptID: "42", Amount: d("0")})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Equal(t, before, f.count(t))
	f.requireBalances(t, "1300", "500")
}

func TestPaymentUseCase_ConcurrentReceipts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "0", "0")

	const receipts = 20
	var wg sync.WaitGroup
	errs := make(chan error, receipts)

	for i := 0; i < receipts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := paidCash
			if i%2 == 1 {
				to = paidCard
			}
			_, err := f.payments.ApplyTransition(context.Background(), usecase.ReceiptTransitionInput{
				ReceiptID: string(rune('a' + i)),
				Total:     d("100"),
				From:      unpaid,
				To:        to,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// 10 cash payments, 10 card payments less 1.5 commission each
	f.requireBalances(t, "1000", "985")
	f.requireConsistent(t)
}

func TestPaymentUseCase_CancelledContextStillCommits(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "0", "0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// settings read happens before the write and tolerates cancellation in
	// the memory store; the write itself must not observe it
	res, err := f.payments.ApplyTransition(ctx, usecase.ReceiptTransitionInput{
		ReceiptID: "1",
		Total:     d("10"),
		From:      unpaid,
		To:        paidCash,
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	f.requireBalances(t, "10", "0")
}
