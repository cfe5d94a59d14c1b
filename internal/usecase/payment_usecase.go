package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// PaymentUseCase reacts to receipt payment state changes by appending the
// matching profit, commission and reversal entries.
type PaymentUseCase struct {
	ledgerWriter
	recorder     *Recorder
	entryRepo    EntryRepository
	settingsRepo SettingsRepository
	auditRepo    AuditRepository
	idGen        IDGenerator
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	recorder *Recorder,
	entryRepo EntryRepository,
	settingsRepo SettingsRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PaymentUseCase {
	return &PaymentUseCase{
		ledgerWriter: newLedgerWriter(txManager, metrics),
		recorder:     recorder,
		entryRepo:    entryRepo,
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// WithRetrier sets the retrier used for write conflicts.
func (uc *PaymentUseCase) WithRetrier(retrier Retrier) *PaymentUseCase {
	uc.retrier = retrier
	return uc
}

// WithLogger sets the logger.
func (uc *PaymentUseCase) WithLogger(logger zerolog.Logger) *PaymentUseCase {
	uc.logger = logger
	return uc
}

// inLockedTx runs fn in a writer transaction that holds the ledger lock
// from the start, so the payment it looks up cannot be reversed by a
// concurrent writer before fn appends.
func (uc *PaymentUseCase) inLockedTx(ctx context.Context, operation string, fn func(ctx context.Context, tx Transaction) error) error {
	return uc.inTx(ctx, operation, func(ctx context.Context, tx Transaction) error {
		if _, err := uc.entryRepo.LockTail(ctx, tx); err != nil {
			return fmt.Errorf("lock ledger tail: %w", err)
		}
		return fn(ctx, tx)
	})
}

// ReceiptTransitionInput describes a receipt's payment state change.
type ReceiptTransitionInput struct {
	ExecutedAt   *time.Time
	ExecutorID   *string
	ExecutorName *string
	Labor        *decimal.Decimal
	PartsProfit  *decimal.Decimal
	ReceiptID    string
	Total        decimal.Decimal
	From         domain.PaymentState
	To           domain.PaymentState
}

// ReceiptResult is the outcome of a reconciler operation.
type ReceiptResult struct {
	Entries []*domain.LedgerEntry
	State   domain.PaymentState
	// Skipped is set when the cash register is disabled.
	Skipped bool
}

// ApplyTransition appends the entries for a payment state transition in one
// transaction.
func (uc *PaymentUseCase) ApplyTransition(ctx context.Context, input ReceiptTransitionInput) (*ReceiptResult, error) {
	// 0. Validate inputs before starting transaction
	receiptID, err := domain.ValidateReceiptID(input.ReceiptID)
	if err != nil {
		return nil, err
	}
	input.ReceiptID = receiptID
	if err := input.From.Validate(); err != nil {
		return nil, err
	}
	if err := input.To.Validate(); err != nil {
		return nil, err
	}
	var labor, parts decimal.Decimal
	if input.To.IsPaid() {
		if err := domain.ValidateAmount(input.Total); err != nil {
			return nil, err
		}
		labor, parts, err = breakdown(input.Total, input.Labor, input.PartsProfit)
		if err != nil {
			return nil, err
		}
	}

	settings, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.CashRegisterEnabled {
		uc.skipped("transition")
		return &ReceiptResult{State: input.To, Skipped: true}, nil
	}

	if !input.From.IsPaid() && !input.To.IsPaid() {
		return &ReceiptResult{State: input.To}, nil
	}

	var appended []*domain.LedgerEntry
	err = uc.inLockedTx(ctx, "transition", func(ctx context.Context, tx Transaction) error {
		appended = nil
		add := func(entries ...*domain.LedgerEntry) {
			appended = append(appended, entries...)
		}

		from, to := input.From, input.To
		if from == to {
			// Same state: only a changed total re-applies the payment
			profit, err := uc.activeEntry(ctx, tx, input.ReceiptID, domain.CategoryProfit)
			if err != nil {
				return err
			}
			if profit == nil || profit.Amount.Equal(input.Total) {
				return nil
			}
		}

		if from.IsPaid() {
			reversed, err := uc.reversePayment(ctx, tx, input.ReceiptID, domain.CategoryCancellation, "payment cancelled")
			if err != nil {
				return err
			}
			add(reversed...)
		}

		if to.IsPaid() {
			recorded, err := uc.recordPayment(ctx, tx, input, to.Method(), labor, parts, settings.CardCommissionPercent)
			if err != nil {
				return err
			}
			add(recorded...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observeCommitted(appended)
	if uc.metrics != nil {
		uc.metrics.Transitions.WithLabelValues(input.From.String(), input.To.String()).Inc()
	}

	return &ReceiptResult{Entries: appended, State: input.To}, nil
}

// DeleteReceipt reverses the receipt's active payment, if any. The payment
// method is taken from the ledger.
func (uc *PaymentUseCase) DeleteReceipt(ctx context.Context, receiptID string) (*ReceiptResult, error) {
	receiptID, err := domain.ValidateReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	settings, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.CashRegisterEnabled {
		uc.skipped("delete_receipt")
		return &ReceiptResult{State: domain.Unpaid(), Skipped: true}, nil
	}

	var appended []*domain.LedgerEntry
	err = uc.inLockedTx(ctx, "delete_receipt", func(ctx context.Context, tx Transaction) error {
		reversed, err := uc.reversePayment(ctx, tx, receiptID, domain.CategoryCancellation, "receipt deleted")
		appended = reversed
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.observeCommitted(appended)
	return &ReceiptResult{Entries: appended, State: domain.Unpaid()}, nil
}

// RefundInput describes a full or partial refund of a paid receipt.
type RefundInput struct {
	ExecutedAt *time.Time
	ReceiptID  string
	Reason     string
	Amount     decimal.Decimal
}

// RefundResult is the outcome of a refund.
type RefundResult struct {
	ReceiptResult
	Full bool
	// CommissionKept marks a partial refund of a card payment: the receipt
	// is unpaid but its bank commission stays on the books.
	CommissionKept bool
}

// RefundReceipt appends a Refund entry against the receipt's active Profit.
// A full refund also reverses the bank commission; a partial refund leaves it
// in place. The receipt is unpaid afterwards.
func (uc *PaymentUseCase) RefundReceipt(ctx context.Context, input RefundInput) (*RefundResult, error) {
	receiptID, err := domain.ValidateReceiptID(input.ReceiptID)
	if err != nil {
		return nil, err
	}
	input.ReceiptID = receiptID
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	reason, err := domain.ValidateDescription(input.Reason)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "refund"
	}

	settings, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.CashRegisterEnabled {
		uc.skipped("refund")
		return &RefundResult{ReceiptResult: ReceiptResult{State: domain.Unpaid(), Skipped: true}}, nil
	}

	var (
		appended []*domain.LedgerEntry
		full     bool
		kept     bool
	)
	err = uc.inLockedTx(ctx, "refund", func(ctx context.Context, tx Transaction) error {
		appended, kept = nil, false

		// 1. Find the payment being refunded
		profit, err := uc.activeEntry(ctx, tx, input.ReceiptID, domain.CategoryProfit)
		if err != nil {
			return err
		}
		if profit == nil {
			return domain.ErrNothingToRefund
		}
		if input.Amount.GreaterThan(profit.Amount) {
			return fmt.Errorf("%w: paid %s, requested %s", domain.ErrRefundExceedsTotal, profit.Amount, input.Amount)
		}
		full = input.Amount.Equal(profit.Amount)
		commission, err := uc.commissionOf(ctx, tx, input.ReceiptID, profit)
		if err != nil {
			return err
		}

		// 2. Refund entry, breakdown scaled to the refunded share
		refund := reversalOf(profit, domain.CategoryRefund, reason)
		refund.Amount = input.Amount.Neg()
		refund.ExecutedAt = input.ExecutedAt
		if !full {
			ratio := input.Amount.Div(profit.Amount)
			refund.Labor = profit.Labor.Mul(ratio).Round(domain.MoneyPlaces).Neg()
			refund.PartsProfit = profit.PartsProfit.Mul(ratio).Round(domain.MoneyPlaces).Neg()
		}
		entry, err := uc.recorder.Append(ctx, tx, refund)
		if err != nil {
			return err
		}
		appended = append(appended, entry)

		// 3. Commission goes back only on a full refund
		switch {
		case commission == nil:
		case full:
			returned, err := uc.recorder.Append(ctx, tx, reversalOf(commission, domain.CategoryCancellation, "commission returned on refund"))
			if err != nil {
				return err
			}
			appended = append(appended, returned)
		default:
			kept = true
		}

		// 4. Audit
		if uc.auditRepo != nil {
			auditLog := domain.NewAuditLog(ctx, uc.idGen.Generate(), domain.AuditActionReceiptRefund,
				domain.ResourceTypeReceipt, input.ReceiptID, profit, entry)
			if err := uc.auditRepo.CreateTx(ctx, tx, auditLog); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observeCommitted(appended)
	if uc.metrics != nil {
		kind := "partial"
		if full {
			kind = "full"
		}
		uc.metrics.Refunds.WithLabelValues(kind).Inc()
	}
	if kept {
		uc.logger.Warn().
			Str("receipt_id", input.ReceiptID).
			Str("refunded", input.Amount.String()).
			Msg("partial refund left the bank commission in place")
	}

	return &RefundResult{
		ReceiptResult:  ReceiptResult{Entries: appended, State: domain.Unpaid()},
		Full:           full,
		CommissionKept: kept,
	}, nil
}

// recordPayment appends the Profit entry and, for card payments, the bank
// commission.
func (uc *PaymentUseCase) recordPayment(
	ctx context.Context,
	tx Transaction,
	input ReceiptTransitionInput,
	method domain.PaymentMethod,
	labor, parts decimal.Decimal,
	commissionPercent decimal.Decimal,
) ([]*domain.LedgerEntry, error) {
	receiptID := input.ReceiptID

	profit, err := uc.recorder.Append(ctx, tx, AppendInput{
		Category:         domain.CategoryProfit,
		PaymentMethod:    method,
		Description:      "payment for receipt " + receiptID,
		Amount:           input.Total,
		ExecutedAt:       input.ExecutedAt,
		ExecutorID:       input.ExecutorID,
		ExecutorName:     input.ExecutorName,
		RelatedReceiptID: &receiptID,
		Labor:            labor,
		PartsProfit:      parts,
	})
	if err != nil {
		return nil, err
	}

	if method != domain.PaymentMethodCard {
		return []*domain.LedgerEntry{profit}, nil
	}

	commission, err := uc.recorder.Append(ctx, tx, AppendInput{
		Category:         domain.CategoryBankCommission,
		PaymentMethod:    domain.PaymentMethodCard,
		Description:      "card commission for receipt " + receiptID,
		Amount:           domain.CommissionFor(input.Total, commissionPercent).Neg(),
		ExecutedAt:       input.ExecutedAt,
		ExecutorID:       input.ExecutorID,
		ExecutorName:     input.ExecutorName,
		RelatedReceiptID: &receiptID,
	})
	if err != nil {
		return nil, err
	}

	return []*domain.LedgerEntry{profit, commission}, nil
}

// reversePayment cancels the receipt's active Profit and, for a card
// payment, the bank commission charged with it.
func (uc *PaymentUseCase) reversePayment(ctx context.Context, tx Transaction, receiptID string, category domain.Category, description string) ([]*domain.LedgerEntry, error) {
	profit, err := uc.activeEntry(ctx, tx, receiptID, domain.CategoryProfit)
	if err != nil {
		return nil, err
	}
	if profit == nil {
		uc.logger.Debug().Str("receipt_id", receiptID).Msg("no active payment to reverse")
		return nil, nil
	}
	commission, err := uc.commissionOf(ctx, tx, receiptID, profit)
	if err != nil {
		return nil, err
	}

	cancelled, err := uc.recorder.Append(ctx, tx, reversalOf(profit, category, description))
	if err != nil {
		return nil, err
	}
	out := []*domain.LedgerEntry{cancelled}

	if commission != nil {
		returned, err := uc.recorder.Append(ctx, tx, reversalOf(commission, category, description))
		if err != nil {
			return nil, err
		}
		out = append(out, returned)
	}

	return out, nil
}

// commissionOf returns the unreversed bank commission charged with a card
// profit, or nil. A commission is appended right after its profit, so one
// older than the profit belongs to an earlier payment of the receipt.
func (uc *PaymentUseCase) commissionOf(ctx context.Context, tx Transaction, receiptID string, profit *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if profit.PaymentMethod != domain.PaymentMethodCard {
		return nil, nil
	}
	commission, err := uc.activeEntry(ctx, tx, receiptID, domain.CategoryBankCommission)
	if err != nil || commission == nil {
		return nil, err
	}
	if commission.ID < profit.ID {
		return nil, nil
	}
	return commission, nil
}

// activeEntry returns the most recent entry of the category for the receipt
// unless it was already reversed. It returns nil when there is none.
func (uc *PaymentUseCase) activeEntry(ctx context.Context, tx Transaction, receiptID string, category domain.Category) (*domain.LedgerEntry, error) {
	entry, err := uc.entryRepo.LatestByReceiptTx(ctx, tx, receiptID, category)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reversed, err := uc.entryRepo.IsReferencedTx(ctx, tx, entry.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, nil
	}

	return entry, nil
}

// breakdown splits a receipt total into labor and parts profit. A missing
// part is the remainder of the total; with neither given, everything is
// labor. Each part lies within [0, total] and the parts add up to the total.
func breakdown(total decimal.Decimal, labor, parts *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if labor == nil && parts == nil {
		return total, decimal.Zero, nil
	}
	if labor != nil {
		if err := checkPart("labor", *labor, total); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	if parts != nil {
		if err := checkPart("parts profit", *parts, total); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}

	switch {
	case labor == nil:
		return total.Sub(*parts), *parts, nil
	case parts == nil:
		return *labor, total.Sub(*labor), nil
	}
	if !labor.Add(*parts).Equal(total) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: labor %s and parts profit %s do not add up to total %s",
			domain.ErrInvalidAmount, *labor, *parts, total)
	}
	return *labor, *parts, nil
}

func checkPart(name string, part, total decimal.Decimal) error {
	if part.IsNegative() || part.GreaterThan(total) {
		return fmt.Errorf("%w: %s must be between 0 and the total %s", domain.ErrInvalidAmount, name, total)
	}
	if !part.Equal(part.Truncate(domain.MoneyPlaces)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", domain.ErrInvalidAmount, name, domain.MoneyPlaces)
	}
	return nil
}
