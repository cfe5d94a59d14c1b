package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// PaymentService defines the behavior needed by ReceiptHandler.
type PaymentService interface {
	ApplyTransition(ctx context.Context, input usecase.ReceiptTransitionInput) (*usecase.ReceiptResult, error)
	RefundReceipt(ctx context.Context, input usecase.RefundInput) (*usecase.RefundResult, error)
	DeleteReceipt(ctx context.Context, receiptID string) (*usecase.ReceiptResult, error)
}

// ReceiptReader lists a receipt's entries.
type ReceiptReader interface {
	GetEntriesForReceipt(ctx context.Context, receiptID string) ([]*domain.LedgerEntry, error)
}

// ReceiptHandler handles receipt payment events.
type ReceiptHandler struct {
	paymentUC PaymentService
	reader    ReceiptReader
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(paymentUC PaymentService, reader ReceiptReader) *ReceiptHandler {
	return &ReceiptHandler{paymentUC: paymentUC, reader: reader}
}

// Entries lists the receipt's entries, oldest first.
func (h *ReceiptHandler) Entries(w http.ResponseWriter, r *http.Request) {
	receiptID := receiptIDParam(r)

	entries, err := h.reader.GetEntriesForReceipt(r.Context(), receiptID)
	if err != nil {
		writeDomainError(w, r, "failed to list receipt entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Transition applies a payment state change.
func (h *ReceiptHandler) Transition(w http.ResponseWriter, r *http.Request) {
	receiptID := receiptIDParam(r)

	var req dto.TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(receiptID)
	if err != nil {
		writeDomainError(w, r, "invalid transition", err)
		return
	}
	attributeExecutor(r.Context(), &input)

	result, err := h.paymentUC.ApplyTransition(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to apply transition", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReceiptFromUseCase(receiptID, result))
}

// Refund refunds all or part of the receipt's payment.
func (h *ReceiptHandler) Refund(w http.ResponseWriter, r *http.Request) {
	receiptID := receiptIDParam(r)

	var req dto.RefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(receiptID)
	if err != nil {
		writeDomainError(w, r, "invalid refund", err)
		return
	}

	result, err := h.paymentUC.RefundReceipt(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to refund receipt", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RefundFromUseCase(receiptID, result))
}

// Delete reverses the payment of a deleted receipt.
func (h *ReceiptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	receiptID := receiptIDParam(r)

	result, err := h.paymentUC.DeleteReceipt(r.Context(), receiptID)
	if err != nil {
		writeDomainError(w, r, "failed to delete receipt", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReceiptFromUseCase(receiptID, result))
}

func receiptIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// attributeExecutor fills executor fields from an authenticated executor
// when the request left them empty.
func attributeExecutor(ctx context.Context, input *usecase.ReceiptTransitionInput) {
	user, ok := domain.UserFromContext(ctx)
	if !ok || user.Role != domain.RoleExecutor {
		return
	}
	if input.ExecutorID == nil {
		id := user.ID
		input.ExecutorID = &id
	}
	if input.ExecutorName == nil && user.Name != "" {
		name := user.Name
		input.ExecutorName = &name
	}
}
