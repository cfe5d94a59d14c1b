package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// LedgerUseCase handles balance queries, listing, manual entries and the
// snapshot consistency check.
type LedgerUseCase struct {
	ledgerWriter
	recorder  *Recorder
	entryRepo EntryRepository
	auditRepo AuditRepository
	idGen     IDGenerator
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	recorder *Recorder,
	entryRepo EntryRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerWriter: newLedgerWriter(txManager, metrics),
		recorder:     recorder,
		entryRepo:    entryRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// WithRetrier sets the retrier used for write conflicts.
func (uc *LedgerUseCase) WithRetrier(retrier Retrier) *LedgerUseCase {
	uc.retrier = retrier
	return uc
}

// WithLogger sets the logger.
func (uc *LedgerUseCase) WithLogger(logger zerolog.Logger) *LedgerUseCase {
	uc.logger = logger
	return uc
}

// GetCurrentBalances returns the snapshot of the last entry, or zero balances
// for an empty ledger.
func (uc *LedgerUseCase) GetCurrentBalances(ctx context.Context) (domain.Balances, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultReadTimeout)
	defer cancel()

	last, err := uc.entryRepo.Last(ctx)
	if err != nil {
		return domain.Balances{}, err
	}
	if last == nil {
		return domain.Balances{Cash: decimal.Zero, Card: decimal.Zero}, nil
	}

	return last.Snapshot(), nil
}

// ListEntries returns entries matching the filter, newest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultReadTimeout)
	defer cancel()

	return uc.entryRepo.List(ctx, filter)
}

// GetEntry returns one entry.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultReadTimeout)
	defer cancel()

	return uc.entryRepo.GetByID(ctx, id)
}

// GetEntriesForReceipt returns the receipt's entries, oldest first.
func (uc *LedgerUseCase) GetEntriesForReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error) {
	receiptID, err := domain.ValidateReceiptID(receiptID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultReadTimeout)
	defer cancel()

	return uc.entryRepo.ListByReceipt(ctx, receiptID)
}

// RecordEntryInput describes a manually entered ledger line.
type RecordEntryInput struct {
	ExecutedAt       *time.Time
	ExecutorID       *string
	ExecutorName     *string
	RelatedReceiptID *string
	Category         domain.Category
	PaymentMethod    domain.PaymentMethod
	Description      string
	Amount           decimal.Decimal
}

// RecordEntry appends a manual entry through the recorder. Corrections are
// made through reconciliation, not here.
func (uc *LedgerUseCase) RecordEntry(ctx context.Context, input RecordEntryInput) (*domain.LedgerEntry, error) {
	if !input.Category.IsValid() {
		return nil, domain.ErrInvalidCategory
	}
	if input.PaymentMethod == domain.PaymentMethodMixed || input.Category == domain.CategoryCorrection {
		return nil, domain.ErrMixedNotAllowed
	}
	if !input.PaymentMethod.IsValid() {
		return nil, domain.ErrInvalidPaymentMethod
	}
	if input.Amount.IsZero() {
		return nil, fmt.Errorf("%w: must not be zero", domain.ErrInvalidAmount)
	}
	if err := domain.ValidateMagnitude(input.Amount); err != nil {
		return nil, err
	}
	description, err := domain.ValidateDescription(input.Description)
	if err != nil {
		return nil, err
	}
	receiptID := input.RelatedReceiptID
	if receiptID != nil {
		if strings.TrimSpace(*receiptID) == "" {
			receiptID = nil
		} else {
			id, err := domain.ValidateReceiptID(*receiptID)
			if err != nil {
				return nil, err
			}
			receiptID = &id
		}
	}

	appendInput := AppendInput{
		Category:         input.Category,
		PaymentMethod:    input.PaymentMethod,
		Description:      description,
		Amount:           input.Amount,
		ExecutedAt:       input.ExecutedAt,
		ExecutorID:       input.ExecutorID,
		ExecutorName:     input.ExecutorName,
		RelatedReceiptID: receiptID,
	}
	if input.Category == domain.CategoryProfit {
		appendInput.Labor = input.Amount
	}

	var entry *domain.LedgerEntry
	err = uc.inTx(ctx, "record_entry", func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.recorder.Append(ctx, tx, appendInput)
		if err != nil {
			return err
		}

		if uc.auditRepo == nil {
			return nil
		}
		return uc.auditRepo.CreateTx(ctx, tx, domain.NewAuditLog(ctx, uc.idGen.Generate(),
			domain.AuditActionEntryRecord, domain.ResourceTypeEntry, domain.EntryAggregateID(entry.ID), nil, entry))
	})
	if err != nil {
		return nil, err
	}

	uc.observeCommitted([]*domain.LedgerEntry{entry})
	return entry, nil
}

// ConsistencyReport is the result of replaying the whole log.
type ConsistencyReport struct {
	Mismatch   *domain.SnapshotMismatch
	Replayed   domain.Balances
	EntryCount int
	Consistent bool
}

// VerifyConsistency replays the log from zero and compares every stored
// snapshot. Mismatches are reported, never patched.
func (uc *LedgerUseCase) VerifyConsistency(ctx context.Context) (*ConsistencyReport, error) {
	entries, err := uc.entryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	replayed, mismatch := domain.Replay(entries)
	report := &ConsistencyReport{
		Mismatch:   mismatch,
		Replayed:   replayed,
		EntryCount: len(entries),
		Consistent: mismatch == nil,
	}

	if mismatch != nil {
		uc.logger.Error().
			Int64("entry_id", mismatch.EntryID).
			Str("stored_cash", mismatch.Stored.Cash.String()).
			Str("stored_card", mismatch.Stored.Card.String()).
			Str("expected_cash", mismatch.Expected.Cash.String()).
			Str("expected_card", mismatch.Expected.Card.String()).
			Msg("ledger snapshot mismatch")
		if uc.metrics != nil {
			uc.metrics.ConsistencyFailures.Inc()
		}
	}

	return report, nil
}
