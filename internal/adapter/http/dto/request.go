package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// RecordEntryRequest represents a manually entered ledger line.
type RecordEntryRequest struct {
	ExecutedAt       *time.Time `json:"executed_at,omitempty"`
	ExecutorID       *string    `json:"executor_id,omitempty"`
	ExecutorName     *string    `json:"executor_name,omitempty"`
	RelatedReceiptID *string    `json:"related_receipt_id,omitempty"`
	Category         string     `json:"category"`
	PaymentMethod    string     `json:"payment_method"`
	Description      string     `json:"description"`
	Amount           string     `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *RecordEntryRequest) ToUseCaseInput() (usecase.RecordEntryInput, error) {
	category, err := domain.ParseCategory(r.Category)
	if err != nil {
		return usecase.RecordEntryInput{}, err
	}
	method, err := domain.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return usecase.RecordEntryInput{}, err
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return usecase.RecordEntryInput{}, err
	}

	return usecase.RecordEntryInput{
		ExecutedAt:       r.ExecutedAt,
		ExecutorID:       r.ExecutorID,
		ExecutorName:     r.ExecutorName,
		RelatedReceiptID: r.RelatedReceiptID,
		Category:         category,
		PaymentMethod:    method,
		Description:      r.Description,
		Amount:           amount,
	}, nil
}

// ReconcileRequest carries the physically counted balances.
type ReconcileRequest struct {
	ActualCash string `json:"actual_cash"`
	ActualCard string `json:"actual_card"`
	Note       string `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReconcileRequest) ToUseCaseInput() (usecase.ReconcileInput, error) {
	cash, err := parseAmount("actual_cash", r.ActualCash)
	if err != nil {
		return usecase.ReconcileInput{}, err
	}
	card, err := parseAmount("actual_card", r.ActualCard)
	if err != nil {
		return usecase.ReconcileInput{}, err
	}
	return usecase.ReconcileInput{ActualCash: cash, ActualCard: card, Note: r.Note}, nil
}

// TransitionRequest describes a receipt payment state change. States are
// "unpaid", "cash" or "card".
type TransitionRequest struct {
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
	ExecutorID   *string    `json:"executor_id,omitempty"`
	ExecutorName *string    `json:"executor_name,omitempty"`
	Labor        *string    `json:"labor,omitempty"`
	PartsProfit  *string    `json:"parts_profit,omitempty"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	Total        string     `json:"total"`
}

// ToUseCaseInput converts to use case input.
func (r *TransitionRequest) ToUseCaseInput(receiptID string) (usecase.ReceiptTransitionInput, error) {
	from, err := domain.ParsePaymentState(r.From)
	if err != nil {
		return usecase.ReceiptTransitionInput{}, err
	}
	to, err := domain.ParsePaymentState(r.To)
	if err != nil {
		return usecase.ReceiptTransitionInput{}, err
	}

	input := usecase.ReceiptTransitionInput{
		ExecutedAt:   r.ExecutedAt,
		ExecutorID:   r.ExecutorID,
		ExecutorName: r.ExecutorName,
		ReceiptID:    receiptID,
		From:         from,
		To:           to,
	}

	if r.Total != "" {
		if input.Total, err = parseAmount("total", r.Total); err != nil {
			return usecase.ReceiptTransitionInput{}, err
		}
	}
	if input.Labor, err = parseOptionalAmount("labor", r.Labor); err != nil {
		return usecase.ReceiptTransitionInput{}, err
	}
	if input.PartsProfit, err = parseOptionalAmount("parts_profit", r.PartsProfit); err != nil {
		return usecase.ReceiptTransitionInput{}, err
	}

	return input, nil
}

// RefundRequest describes a full or partial refund.
type RefundRequest struct {
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
	Amount     string     `json:"amount"`
	Reason     string     `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RefundRequest) ToUseCaseInput(receiptID string) (usecase.RefundInput, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return usecase.RefundInput{}, err
	}
	return usecase.RefundInput{
		ExecutedAt: r.ExecutedAt,
		ReceiptID:  receiptID,
		Reason:     r.Reason,
		Amount:     amount,
	}, nil
}

// PurchaseRequest describes a stock purchase.
type PurchaseRequest struct {
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	Description   string     `json:"description"`
	PaymentMethod string     `json:"payment_method"`
	Cost          string     `json:"cost"`
}

// ToUseCaseInput converts to use case input.
func (r *PurchaseRequest) ToUseCaseInput() (usecase.PurchaseInput, error) {
	method, err := domain.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return usecase.PurchaseInput{}, err
	}
	cost, err := parseAmount("cost", r.Cost)
	if err != nil {
		return usecase.PurchaseInput{}, err
	}
	return usecase.PurchaseInput{
		ExecutedAt:    r.ExecutedAt,
		Description:   r.Description,
		PaymentMethod: method,
		Cost:          cost,
	}, nil
}

// RemovalRequest describes stock leaving inventory without a sale.
type RemovalRequest struct {
	ExecutedAt      *time.Time `json:"executed_at,omitempty"`
	PurchaseEntryID *int64     `json:"purchase_entry_id,omitempty"`
	Description     string     `json:"description"`
	PaymentMethod   string     `json:"payment_method"`
	Cost            string     `json:"cost"`
	WriteOff        bool       `json:"write_off"`
}

// ToUseCaseInput converts to use case input.
func (r *RemovalRequest) ToUseCaseInput() (usecase.RemovalInput, error) {
	method, err := domain.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return usecase.RemovalInput{}, err
	}
	cost, err := parseAmount("cost", r.Cost)
	if err != nil {
		return usecase.RemovalInput{}, err
	}
	return usecase.RemovalInput{
		ExecutedAt:      r.ExecutedAt,
		PurchaseEntryID: r.PurchaseEntryID,
		Description:     r.Description,
		PaymentMethod:   method,
		Cost:            cost,
		WriteOff:        r.WriteOff,
	}, nil
}

// UpdateSettingsRequest changes register settings. Omitted fields keep
// their current value.
type UpdateSettingsRequest struct {
	CardCommissionPercent *string `json:"card_commission_percent,omitempty"`
	CashRegisterEnabled   *bool   `json:"cash_register_enabled,omitempty"`
}

// Apply merges the request into current.
func (r *UpdateSettingsRequest) Apply(current domain.Settings) (domain.Settings, error) {
	next := current
	if r.CardCommissionPercent != nil {
		pct, err := decimal.NewFromString(*r.CardCommissionPercent)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("%w: %q", domain.ErrInvalidCommissionPercent, *r.CardCommissionPercent)
		}
		next.CardCommissionPercent = pct
	}
	if r.CashRegisterEnabled != nil {
		next.CashRegisterEnabled = *r.CashRegisterEnabled
	}
	return next, nil
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", domain.ErrInvalidAmount, field, value)
	}
	return d, nil
}

func parseOptionalAmount(field string, value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := parseAmount(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
