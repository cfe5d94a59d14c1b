package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/cashledger/internal/domain"
)

// EventChannel returns the pub/sub channel ledger events are published on.
func EventChannel(prefix string) string {
	if prefix == "" {
		prefix = "cashledger"
	}
	return prefix + ":events"
}

// EventMessage is the JSON envelope published for every outbox event.
type EventMessage struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// EventPublisher publishes outbox events on a Redis channel.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

// NewEventPublisher creates a publisher on EventChannel(prefix).
func NewEventPublisher(client *redis.Client, prefix string) *EventPublisher {
	return &EventPublisher{
		client:  client,
		channel: EventChannel(prefix),
	}
}

// Publish sends the event envelope.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := json.Marshal(EventMessage{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	return p.client.Publish(ctx, p.channel, msg).Err()
}
