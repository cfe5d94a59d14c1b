package handler

import (
	"context"
	"net/http"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
)

// SettingsService defines the behavior needed by SettingsHandler.
type SettingsService interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// SettingsHandler reads and updates register settings.
type SettingsHandler struct {
	settingsUC SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsUC SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsUC: settingsUC}
}

// Get returns the current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsUC.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(settings))
}

// Update merges the request into the current settings and saves them.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.settingsUC.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, r, "failed to get settings", err)
		return
	}

	next, err := req.Apply(current)
	if err != nil {
		writeDomainError(w, r, "invalid settings", err)
		return
	}

	saved, err := h.settingsUC.UpdateSettings(r.Context(), next)
	if err != nil {
		writeDomainError(w, r, "failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(saved))
}
