package services

import (
	"context"
	"fmt"
	"time"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/pkg/logger"
	"github.com/galvin1912/auction-web-app/pkg/utils"
)

// EventListener consumes published bidding events, persists per-user
// notifications, and fans the events out to connected websocket clients.
type EventListener struct {
	store             domain.AuctionStore
	watchlist         domain.WatchlistStore
	notifications     domain.NotificationStore
	broadcaster       domain.AuctionBroadcaster
	userNotifier      domain.UserNotifier
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(
	store domain.AuctionStore,
	watchlist domain.WatchlistStore,
	notifications domain.NotificationStore,
	broadcaster domain.AuctionBroadcaster,
	userNotifier domain.UserNotifier,
	connectionManager domain.ConnectionManager,
	log logger.Logger,
) *EventListener {
	return &EventListener{
		store:             store,
		watchlist:         watchlist,
		notifications:     notifications,
		broadcaster:       broadcaster,
		userNotifier:      userNotifier,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.Subscribe(ctx, el.handleEvent)
}

func (el *EventListener) handleEvent(event *domain.Event) error {
	el.log.Debug("Handling event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.EventBidAccepted:
		return el.handleBidAccepted(event)
	case domain.EventBidOutbid:
		return el.handleBidOutbid(event)
	case domain.EventAuctionCreated:
		return el.handleAuctionCreated(event)
	case domain.EventAuctionEnded:
		return el.handleAuctionEnded(event)
	case domain.EventAuctionCancelled:
		return el.handleAuctionCancelled(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.Event) error {
	ctx := context.Background()

	if err := el.broadcaster.BroadcastToAuction(ctx, event.AuctionID, map[string]interface{}{
		"type":          "bid_update",
		"auction_id":    event.AuctionID,
		"current_price": event.Amount,
		"bidder_id":     event.UserID,
		"timestamp":     event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast bid update", "auction_id", event.AuctionID, "error", err)
	}

	// Watchers other than the bidder get a persistent notification.
	watchers, err := el.watchlist.ListWatchers(ctx, event.AuctionID)
	if err != nil {
		return err
	}
	for _, userID := range watchers {
		if userID == event.UserID {
			continue
		}
		el.saveAndPush(ctx, &domain.Notification{
			UserID:    userID,
			AuctionID: event.AuctionID,
			Type:      "new_bid",
			Title:     "New bid on a watched auction",
			Message:   fmt.Sprintf("An auction on your watchlist received a bid of $%.2f", event.Amount),
		})
	}

	return nil
}

func (el *EventListener) handleBidOutbid(event *domain.Event) error {
	ctx := context.Background()

	el.saveAndPush(ctx, &domain.Notification{
		UserID:    event.UserID,
		AuctionID: event.AuctionID,
		Type:      "outbid",
		Title:     "You have been outbid",
		Message:   fmt.Sprintf("Another bidder raised the price to $%.2f", event.Amount),
	})
	return nil
}

func (el *EventListener) handleAuctionCreated(event *domain.Event) error {
	ctx := context.Background()

	el.saveAndPush(ctx, &domain.Notification{
		UserID:    event.UserID,
		AuctionID: event.AuctionID,
		Type:      "listing_created",
		Title:     "Your listing is live",
		Message:   fmt.Sprintf("Your auction is open for bids starting at $%.2f", event.Amount),
	})
	return nil
}

func (el *EventListener) handleAuctionEnded(event *domain.Event) error {
	ctx := context.Background()

	if err := el.broadcaster.BroadcastToAuction(ctx, event.AuctionID, map[string]interface{}{
		"type":        "auction_ended",
		"auction_id":  event.AuctionID,
		"winner_id":   event.WinnerID,
		"final_price": event.Amount,
		"timestamp":   event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast auction end", "auction_id", event.AuctionID, "error", err)
	}

	auction, err := el.store.GetAuction(ctx, event.AuctionID)
	if err != nil {
		return err
	}

	if event.WinnerID != "" {
		el.saveAndPush(ctx, &domain.Notification{
			UserID:    event.WinnerID,
			AuctionID: event.AuctionID,
			Type:      "auction_won",
			Title:     "You won the auction",
			Message:   fmt.Sprintf("You won %q with a bid of $%.2f", auction.Title, event.Amount),
		})
	}

	sellerMsg := fmt.Sprintf("Your auction %q ended without a winner", auction.Title)
	if event.WinnerID != "" {
		sellerMsg = fmt.Sprintf("Your auction %q sold for $%.2f", auction.Title, event.Amount)
	}
	el.saveAndPush(ctx, &domain.Notification{
		UserID:    auction.SellerID,
		AuctionID: event.AuctionID,
		Type:      "auction_ended",
		Title:     "Your auction has ended",
		Message:   sellerMsg,
	})

	return el.connectionManager.CloseAndUnregisterConnections(event.AuctionID)
}

func (el *EventListener) handleAuctionCancelled(event *domain.Event) error {
	ctx := context.Background()

	if err := el.broadcaster.BroadcastToAuction(ctx, event.AuctionID, map[string]interface{}{
		"type":       "auction_cancelled",
		"auction_id": event.AuctionID,
		"timestamp":  event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast cancellation", "auction_id", event.AuctionID, "error", err)
	}

	return el.connectionManager.CloseAndUnregisterConnections(event.AuctionID)
}

func (el *EventListener) saveAndPush(ctx context.Context, n *domain.Notification) {
	n.ID = utils.GenerateID("notification")
	n.CreatedAt = time.Now().UTC()

	if err := el.notifications.CreateNotification(ctx, n); err != nil {
		el.log.Error("Failed to persist notification",
			"user_id", n.UserID, "type", n.Type, "error", err)
	}

	if err := el.userNotifier.NotifyUser(ctx, n.UserID, map[string]interface{}{
		"type":       "notification",
		"kind":       n.Type,
		"auction_id": n.AuctionID,
		"title":      n.Title,
		"message":    n.Message,
	}); err != nil {
		el.log.Debug("User not connected for push", "user_id", n.UserID)
	}
}
