package memory

import (
	"context"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// SettingsRepository implements usecase.SettingsRepository.
type SettingsRepository struct {
	store    *Store
	defaults domain.Settings
}

// NewSettingsRepository creates a new SettingsRepository that returns
// defaults until settings are saved.
func NewSettingsRepository(store *Store, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{store: store, defaults: defaults}
}

// Get returns the committed settings.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	if s := r.store.snapshot().settings; s != nil {
		return *s, nil
	}
	return r.defaults, nil
}

// Save stores settings within the transaction.
func (r *SettingsRepository) Save(ctx context.Context, tx usecase.Transaction, settings domain.Settings) error {
	t, err := txState(tx)
	if err != nil {
		return err
	}
	t.state.settings = &settings
	return nil
}
