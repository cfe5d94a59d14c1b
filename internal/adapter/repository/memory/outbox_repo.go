package memory

import (
	"context"
	"time"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create stages an event; it becomes visible on commit.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, err := txState(tx)
	if err != nil {
		return err
	}
	e := *event
	t.outbox = append(t.outbox, &e)
	return nil
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if len(out) >= limit {
			break
		}
		if !e.Published {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			if e.Published {
				return domain.ErrEventAlreadyPublished
			}
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return domain.ErrEventAlreadyPublished
}

// DeletePublished drops events published before the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.outbox[:0]
	for _, e := range r.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept
	return nil
}
