package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// EventPublisher publishes domain events as JSON envelopes to
// one pub/sub channel per event type.
type EventPublisher struct {
	cache   *Cache
	timeout time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cache *Cache) *EventPublisher {
	return &EventPublisher{cache: cache, timeout: 2 * time.Second}
}

var _ shared.EventPublisher = (*EventPublisher)(nil)

// Publish sends the event to pubsub:<event type>.
func (p *EventPublisher) Publish(event shared.Event) error {
	env, err := shared.NewEventEnvelope(uuid.NewString(), event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventType(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.cache.Publish(ctx, PubSubChannel(string(event.EventType())), env)
}
