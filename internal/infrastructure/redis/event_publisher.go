package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

const eventsChannel = "auction_events"

// EventPublisher is the production domain.Notifier backed by Redis pub/sub.
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, eventsChannel, payload).Err()
}
