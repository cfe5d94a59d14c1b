package handler

import (
	"context"
	"net/http"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/usecase"
)

// InventoryService defines the behavior needed by InventoryHandler.
type InventoryService interface {
	RecordPurchase(ctx context.Context, input usecase.PurchaseInput) (*usecase.InventoryResult, error)
	RemoveItem(ctx context.Context, input usecase.RemovalInput) (*usecase.InventoryResult, error)
}

// InventoryHandler records stock purchases and removals.
type InventoryHandler struct {
	inventoryUC InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(inventoryUC InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryUC: inventoryUC}
}

// Purchase records a stock purchase.
func (h *InventoryHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req dto.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid purchase", err)
		return
	}

	result, err := h.inventoryUC.RecordPurchase(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to record purchase", err)
		return
	}

	writeJSON(w, inventoryStatus(result), dto.InventoryFromUseCase(result))
}

// Removal records a returned or written-off item.
func (h *InventoryHandler) Removal(w http.ResponseWriter, r *http.Request) {
	var req dto.RemovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid removal", err)
		return
	}

	result, err := h.inventoryUC.RemoveItem(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to record removal", err)
		return
	}

	writeJSON(w, inventoryStatus(result), dto.InventoryFromUseCase(result))
}

func inventoryStatus(result *usecase.InventoryResult) int {
	if result.Skipped {
		return http.StatusOK
	}
	return http.StatusCreated
}
