package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

// EventSubscriber delivers published auction events to a handler.
type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{
		client: client,
		log:    log,
	}
}

func (s *EventSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	s.log.Info("Subscribed to auction events", "channel", eventsChannel)

	for {
		select {
		case msg := <-ch:
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				s.log.Error("Failed to handle event",
					"type", event.Type, "auction_id", event.AuctionID, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}
