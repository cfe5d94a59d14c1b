package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	GetCurrentBalances(ctx context.Context) (domain.Balances, error)
	ListEntries(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, error)
	GetEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error)
	RecordEntry(ctx context.Context, input usecase.RecordEntryInput) (*domain.LedgerEntry, error)
	VerifyConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// EditorService defines the manual ledger edits.
type EditorService interface {
	Reconcile(ctx context.Context, input usecase.ReconcileInput) (*usecase.ReconcileResult, error)
	DeleteEntry(ctx context.Context, id int64) (*usecase.DeleteResult, error)
}

// LedgerHandler serves balances, entries and ledger maintenance.
type LedgerHandler struct {
	ledgerUC LedgerService
	editorUC EditorService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, editorUC EditorService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, editorUC: editorUC}
}

// Balances returns the current cash and card balances.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledgerUC.GetCurrentBalances(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(balances))
}

// ListEntries lists entries newest first.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	entries, err := h.ledgerUC.ListEntries(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to list entries", err)
		return
	}

	limit, offset := domain.NormalizePage(filter.Limit, filter.Offset)
	writeJSON(w, http.StatusOK, dto.EntryListResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}

// GetEntry returns one entry.
func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	entry, err := h.ledgerUC.GetEntry(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// CreateEntry records a manual entry.
func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid entry", err)
		return
	}

	entry, err := h.ledgerUC.RecordEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to record entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// DeleteEntry deletes an entry and shifts later snapshots.
func (h *LedgerHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.editorUC.DeleteEntry(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to delete entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteFromUseCase(result))
}

// Reconcile sets the balances to a physical count.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid reconciliation", err)
		return
	}

	result, err := h.editorUC.Reconcile(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to reconcile", err)
		return
	}

	status := http.StatusOK
	if result.Correction != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.ReconcileFromUseCase(result))
}

// Consistency replays the log. A mismatch is answered with 409.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.VerifyConsistency(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to verify consistency", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ConsistencyFromUseCase(report))
}

func entryIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid entry ID", chi.URLParam(r, "id"))
		return 0, false
	}
	return id, true
}

func entryFilterFromQuery(r *http.Request) (domain.EntryFilter, error) {
	q := r.URL.Query()
	filter := domain.EntryFilter{
		Search: q.Get("q"),
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}

	var err error
	if filter.From, err = parseTimeQuery(r, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeQuery(r, "to", true); err != nil {
		return filter, err
	}

	if v := q.Get("category"); v != "" {
		c, err := domain.ParseCategory(v)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if v := q.Get("payment_method"); v != "" {
		m, err := domain.ParsePaymentMethod(v)
		if err != nil {
			return filter, err
		}
		filter.PaymentMethod = &m
	}

	return filter, nil
}
