// Package notify publishes stored contact messages to a Redis list so that
// downstream workers (mailers, chat hooks) can react to new submissions.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/portfolio/backend/internal/model"
)

// EventContactSubmitted is the event type for a newly stored contact message.
const EventContactSubmitted = "contact.submitted"

// Event is the JSON envelope pushed onto the queue.
type Event struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Data       *model.ContactMessage `json:"data"`
}

// Publisher pushes contact events onto a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
	now       func() time.Time
}

// NewPublisher creates a Publisher targeting queueName.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{rdb: rdb, queueName: queueName, now: time.Now}
}

// NewClient parses a redis:// URL and returns a client for it.
func NewClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (p *Publisher) newEvent(msg *model.ContactMessage) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       EventContactSubmitted,
		OccurredAt: p.now().UTC(),
		Data:       msg,
	}
}

// Publish serialises msg into an Event and LPUSHes it onto the queue.
// Consumers pop from the other end with BRPOP.
func (p *Publisher) Publish(ctx context.Context, msg *model.ContactMessage) error {
	event := p.newEvent(msg)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal contact event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.InfoContext(ctx, "published contact event",
		"event_id", event.ID,
		"contact_id", msg.ID,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
