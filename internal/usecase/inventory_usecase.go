package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// InventoryUseCase records the money side of stock purchases and removals.
type InventoryUseCase struct {
	ledgerWriter
	recorder     *Recorder
	settingsRepo SettingsRepository
}

// NewInventoryUseCase creates a new InventoryUseCase.
func NewInventoryUseCase(
	txManager TransactionManager,
	recorder *Recorder,
	settingsRepo SettingsRepository,
	metrics *metrics.Metrics,
) *InventoryUseCase {
	return &InventoryUseCase{
		ledgerWriter: newLedgerWriter(txManager, metrics),
		recorder:     recorder,
		settingsRepo: settingsRepo,
	}
}

// WithRetrier sets the retrier used for write conflicts.
func (uc *InventoryUseCase) WithRetrier(retrier Retrier) *InventoryUseCase {
	uc.retrier = retrier
	return uc
}

// WithLogger sets the logger.
func (uc *InventoryUseCase) WithLogger(logger zerolog.Logger) *InventoryUseCase {
	uc.logger = logger
	return uc
}

// PurchaseInput describes a stock purchase.
type PurchaseInput struct {
	ExecutedAt    *time.Time
	Description   string
	PaymentMethod domain.PaymentMethod
	Cost          decimal.Decimal
}

// RemovalInput describes stock leaving inventory without a sale.
type RemovalInput struct {
	ExecutedAt *time.Time
	// PurchaseEntryID links the removal to the purchase it undoes.
	PurchaseEntryID *int64
	Description     string
	PaymentMethod   domain.PaymentMethod
	Cost            decimal.Decimal
	// WriteOff records a loss that does not return money to the register.
	WriteOff bool
}

// InventoryResult is the outcome of an inventory operation. Entry is nil when
// the operation was skipped.
type InventoryResult struct {
	Entry   *domain.LedgerEntry
	Skipped bool
}

// RecordPurchase appends Purchase(-cost, method).
func (uc *InventoryUseCase) RecordPurchase(ctx context.Context, input PurchaseInput) (*InventoryResult, error) {
	description, err := validateInventory(input.Cost, input.PaymentMethod, input.Description)
	if err != nil {
		return nil, err
	}

	return uc.record(ctx, "purchase", AppendInput{
		Category:      domain.CategoryPurchase,
		PaymentMethod: input.PaymentMethod,
		Description:   description,
		Amount:        input.Cost.Neg(),
		ExecutedAt:    input.ExecutedAt,
	})
}

// RemoveItem appends Cancellation(+cost, method) for a returned item, or
// WriteOff(-cost, method) which leaves both balances unchanged.
func (uc *InventoryUseCase) RemoveItem(ctx context.Context, input RemovalInput) (*InventoryResult, error) {
	description, err := validateInventory(input.Cost, input.PaymentMethod, input.Description)
	if err != nil {
		return nil, err
	}

	if input.WriteOff {
		return uc.record(ctx, "write_off", AppendInput{
			Category:       domain.CategoryWriteOff,
			PaymentMethod:  input.PaymentMethod,
			Description:    description,
			Amount:         input.Cost.Neg(),
			ExecutedAt:     input.ExecutedAt,
			RelatedEntryID: input.PurchaseEntryID,
		})
	}

	var reversed *domain.Category
	if input.PurchaseEntryID != nil {
		c := domain.CategoryPurchase
		reversed = &c
	}

	return uc.record(ctx, "removal", AppendInput{
		Category:         domain.CategoryCancellation,
		PaymentMethod:    input.PaymentMethod,
		Description:      description,
		Amount:           input.Cost,
		ExecutedAt:       input.ExecutedAt,
		RelatedEntryID:   input.PurchaseEntryID,
		ReversedCategory: reversed,
	})
}

func (uc *InventoryUseCase) record(ctx context.Context, operation string, input AppendInput) (*InventoryResult, error) {
	settings, err := uc.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.CashRegisterEnabled {
		uc.skipped(operation)
		return &InventoryResult{Skipped: true}, nil
	}

	var entry *domain.LedgerEntry
	err = uc.inTx(ctx, operation, func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.recorder.Append(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.observeCommitted([]*domain.LedgerEntry{entry})
	return &InventoryResult{Entry: entry}, nil
}

func validateInventory(cost decimal.Decimal, method domain.PaymentMethod, description string) (string, error) {
	if err := domain.ValidateAmount(cost); err != nil {
		return "", err
	}
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodCard {
		return "", fmt.Errorf("%w: inventory is paid by cash or card", domain.ErrInvalidPaymentMethod)
	}
	return domain.ValidateDescription(description)
}
