package memory

import (
	"context"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateTx stages an audit log; it becomes visible on commit.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	t, err := txState(tx)
	if err != nil {
		return err
	}
	l := *log
	t.audit = append(t.audit, &l)
	return nil
}

// GetByResourceID returns the audit logs of a resource, oldest first.
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.AuditLog, 0)
	for _, l := range r.store.audit {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}
