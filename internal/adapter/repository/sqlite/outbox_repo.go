package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		string(payload),
		formatTime(event.CreatedAt),
		event.Published,
	)
	return err
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published
		FROM outbox_events
		WHERE published = 0
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.OutboxEvent, 0)
	for rows.Next() {
		var (
			e           domain.OutboxEvent
			payload     string
			createdAt   string
			publishedAt sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &payload, &createdAt, &publishedAt, &e.Published); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(payload), &e.Payload)
		e.CreatedAt, _ = parseTime(createdAt)
		if publishedAt.Valid {
			t, _ := parseTime(publishedAt.String)
			e.PublishedAt = &t
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}

// MarkPublished marks an event as published. It returns
// domain.ErrEventAlreadyPublished when no unpublished row matched.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published = 1, published_at = ? WHERE id = ? AND published = 0`, formatTime(publishedAt), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEventAlreadyPublished, id)
	}
	return nil
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE published = 1 AND published_at < ?`, formatTime(before))
	return err
}
