package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cashledger/internal/usecase"
)

// OutboxRepository stores ledger events next to the entries that caused
// them, for the event publisher to drain.
type OutboxRepository struct {
	queries *generated.Queries
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db generated.DBTX) *OutboxRepository {
	return &OutboxRepository{
		queries: generated.New(db),
	}
}

// Create inserts the event in the writer's transaction, so it exists only if
// the ledger change commits.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	_, q, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode payload of %s event: %w", event.EventType, err)
	}

	return q.CreateOutboxEvent(ctx, generated.CreateOutboxEventParams{
		ID:            event.ID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Payload:       payload,
		CreatedAt:     timeToPgTimestamptz(event.CreatedAt),
		Published:     event.Published,
	})
}

// GetUnpublished returns up to limit pending events. Events of one
// transaction share created_at and keep their order through the ULID id.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.queries.GetUnpublishedEvents(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		event, err := outboxEventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// MarkPublished flags one pending event. It returns
// domain.ErrEventAlreadyPublished when no pending row matched.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	n, err := r.queries.MarkEventPublished(ctx, generated.MarkEventPublishedParams{
		ID:          id,
		PublishedAt: timeToPgTimestamptz(publishedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEventAlreadyPublished, id)
	}
	return nil
}

// DeletePublished prunes events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.queries.DeletePublishedEvents(ctx, timeToPgTimestamptz(before))
}

func outboxEventFromRow(row generated.OutboxEvent) (*domain.OutboxEvent, error) {
	event := &domain.OutboxEvent{
		ID:            row.ID,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		EventType:     row.EventType,
		CreatedAt:     row.CreatedAt.Time,
		Published:     row.Published,
	}

	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of event %s: %w", row.ID, err)
		}
	}
	if row.PublishedAt.Valid {
		at := row.PublishedAt.Time
		event.PublishedAt = &at
	}
	return event, nil
}
