package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// EntryResponse represents a ledger entry in API responses. Money is
// serialized as decimal strings.
type EntryResponse struct {
	ID               int64           `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	ExecutedAt       time.Time       `json:"executed_at"`
	Category         string          `json:"category"`
	PaymentMethod    string          `json:"payment_method"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	CashAfter        decimal.Decimal `json:"cash_after"`
	CardAfter        decimal.Decimal `json:"card_after"`
	Labor            decimal.Decimal `json:"labor"`
	PartsProfit      decimal.Decimal `json:"parts_profit"`
	ExecutorID       *string         `json:"executor_id,omitempty"`
	ExecutorName     *string         `json:"executor_name,omitempty"`
	RelatedReceiptID *string         `json:"related_receipt_id,omitempty"`
	RelatedEntryID   *int64          `json:"related_entry_id,omitempty"`
	ReversedCategory *string         `json:"reversed_category,omitempty"`
}

// EntryFromDomain converts a domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	if e == nil {
		return nil
	}
	resp := &EntryResponse{
		ID:               e.ID,
		CreatedAt:        e.CreatedAt,
		ExecutedAt:       e.ExecutedAt,
		Category:         string(e.Category),
		PaymentMethod:    string(e.PaymentMethod),
		Description:      e.Description,
		Amount:           e.Amount,
		CashAfter:        e.CashAfter,
		CardAfter:        e.CardAfter,
		Labor:            e.Labor,
		PartsProfit:      e.PartsProfit,
		ExecutorID:       e.ExecutorID,
		ExecutorName:     e.ExecutorName,
		RelatedReceiptID: e.RelatedReceiptID,
		RelatedEntryID:   e.RelatedEntryID,
	}
	if e.ReversedCategory != nil {
		c := string(*e.ReversedCategory)
		resp.ReversedCategory = &c
	}
	return resp
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// BalancesResponse represents the register balances.
type BalancesResponse struct {
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
	Total decimal.Decimal `json:"total"`
}

// BalancesFromDomain converts balances to response.
func BalancesFromDomain(b domain.Balances) BalancesResponse {
	return BalancesResponse{Cash: b.Cash, Card: b.Card, Total: b.Total()}
}

// EntryListResponse is a page of entries, newest first.
type EntryListResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ReconcileResponse is the outcome of a reconciliation.
type ReconcileResponse struct {
	Correction *EntryResponse   `json:"correction,omitempty"`
	Before     BalancesResponse `json:"before"`
	CashDiff   decimal.Decimal  `json:"cash_diff"`
	CardDiff   decimal.Decimal  `json:"card_diff"`
	Changed    bool             `json:"changed"`
}

// ReconcileFromUseCase converts a reconcile result to response.
func ReconcileFromUseCase(r *usecase.ReconcileResult) *ReconcileResponse {
	return &ReconcileResponse{
		Correction: EntryFromDomain(r.Correction),
		Before:     BalancesFromDomain(r.Before),
		CashDiff:   r.CashDiff,
		CardDiff:   r.CardDiff,
		Changed:    r.Correction != nil,
	}
}

// DeleteEntryResponse is the outcome of an entry deletion.
type DeleteEntryResponse struct {
	Deleted      *EntryResponse  `json:"deleted"`
	CashDelta    decimal.Decimal `json:"cash_delta"`
	CardDelta    decimal.Decimal `json:"card_delta"`
	ShiftedCount int64           `json:"shifted_count"`
}

// DeleteFromUseCase converts a delete result to response.
func DeleteFromUseCase(r *usecase.DeleteResult) *DeleteEntryResponse {
	return &DeleteEntryResponse{
		Deleted:      EntryFromDomain(r.Deleted),
		CashDelta:    r.Delta.Cash,
		CardDelta:    r.Delta.Card,
		ShiftedCount: r.ShiftedCount,
	}
}

// MismatchResponse describes the first inconsistent entry.
type MismatchResponse struct {
	EntryID  int64            `json:"entry_id"`
	Expected BalancesResponse `json:"expected"`
	Stored   BalancesResponse `json:"stored"`
}

// ConsistencyResponse is the result of replaying the log.
type ConsistencyResponse struct {
	Consistent bool              `json:"consistent"`
	EntryCount int               `json:"entry_count"`
	Replayed   BalancesResponse  `json:"replayed"`
	Mismatch   *MismatchResponse `json:"mismatch,omitempty"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	resp := &ConsistencyResponse{
		Consistent: r.Consistent,
		EntryCount: r.EntryCount,
		Replayed:   BalancesFromDomain(r.Replayed),
	}
	if r.Mismatch != nil {
		resp.Mismatch = &MismatchResponse{
			EntryID:  r.Mismatch.EntryID,
			Expected: BalancesFromDomain(r.Mismatch.Expected),
			Stored:   BalancesFromDomain(r.Mismatch.Stored),
		}
	}
	return resp
}

// ReceiptResponse is the outcome of a reconciler operation.
type ReceiptResponse struct {
	ReceiptID      string           `json:"receipt_id"`
	State          string           `json:"state"`
	Skipped        bool             `json:"skipped"`
	Entries        []*EntryResponse `json:"entries"`
	Full           *bool            `json:"full_refund,omitempty"`
	CommissionKept bool             `json:"commission_kept,omitempty"`
}

// ReceiptFromUseCase converts a receipt result to response.
func ReceiptFromUseCase(receiptID string, r *usecase.ReceiptResult) *ReceiptResponse {
	return &ReceiptResponse{
		ReceiptID: receiptID,
		State:     r.State.String(),
		Skipped:   r.Skipped,
		Entries:   EntriesFromDomain(r.Entries),
	}
}

// RefundFromUseCase converts a refund result to response.
func RefundFromUseCase(receiptID string, r *usecase.RefundResult) *ReceiptResponse {
	resp := ReceiptFromUseCase(receiptID, &r.ReceiptResult)
	if !r.Skipped {
		full := r.Full
		resp.Full = &full
		resp.CommissionKept = r.CommissionKept
	}
	return resp
}

// InventoryResponse is the outcome of an inventory operation.
type InventoryResponse struct {
	Entry   *EntryResponse `json:"entry,omitempty"`
	Skipped bool           `json:"skipped"`
}

// InventoryFromUseCase converts an inventory result to response.
func InventoryFromUseCase(r *usecase.InventoryResult) *InventoryResponse {
	return &InventoryResponse{Entry: EntryFromDomain(r.Entry), Skipped: r.Skipped}
}

// ExecutorTotalsResponse holds an executor's salary figures for a period.
type ExecutorTotalsResponse struct {
	ExecutorName    string           `json:"executor_name"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	LaborTotal      decimal.Decimal  `json:"labor_total"`
	PartsProfit     decimal.Decimal  `json:"parts_profit"`
	CommissionTotal decimal.Decimal  `json:"commission_total"`
	EntryCount      int              `json:"entry_count"`
	SalaryPercent   *decimal.Decimal `json:"salary_percent,omitempty"`
	Share           *decimal.Decimal `json:"share,omitempty"`
}

// ExecutorTotalsFromDomain converts totals to response. The share is set
// when salaryPercent is given.
func ExecutorTotalsFromDomain(t domain.ExecutorPeriodTotals, from, to time.Time, salaryPercent *decimal.Decimal) *ExecutorTotalsResponse {
	resp := &ExecutorTotalsResponse{
		ExecutorName:    t.ExecutorName,
		From:            from,
		To:              to,
		LaborTotal:      t.LaborTotal,
		PartsProfit:     t.PartsProfit,
		CommissionTotal: t.CommissionTotal,
		EntryCount:      t.EntryCount,
	}
	if salaryPercent != nil {
		share := t.Share(*salaryPercent)
		resp.SalaryPercent = salaryPercent
		resp.Share = &share
	}
	return resp
}

// SettingsResponse represents register settings.
type SettingsResponse struct {
	CardCommissionPercent decimal.Decimal `json:"card_commission_percent"`
	CashRegisterEnabled   bool            `json:"cash_register_enabled"`
}

// SettingsFromDomain converts settings to response.
func SettingsFromDomain(s domain.Settings) SettingsResponse {
	return SettingsResponse{
		CardCommissionPercent: s.CardCommissionPercent,
		CashRegisterEnabled:   s.CashRegisterEnabled,
	}
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo represents user information
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// UserFromDomain converts a user to response.
func UserFromDomain(u *domain.User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}
