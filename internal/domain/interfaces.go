package domain

import (
	"context"
	"time"
)

// Clock supplies the current time so deadline checks are testable.
type Clock interface {
	Now() time.Time
}

// AuctionStore is the durable state for auctions and bids. It persists what it
// is told and enforces identifier uniqueness plus the conditional guards below;
// all business rules live in the bidding service.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListActiveAuctions(ctx context.Context, filters AuctionFilters) ([]*Auction, error)
	ListExpiredActive(ctx context.Context, before time.Time) ([]*Auction, error)

	// AcceptBid atomically inserts bid with status winning, demotes the previous
	// winning bid (if any) to outbid, and advances the auction's current price to
	// bid.Amount — conditional on the auction still being active with
	// CurrentPrice == expectedPrice. Returns the demoted bid, or nil when the
	// auction had no previous winning bid. Returns ErrConflict when the guard no
	// longer holds; the caller re-reads and retries.
	AcceptBid(ctx context.Context, auctionID string, expectedPrice float64, bid *Bid) (*Bid, error)

	// MarkEnded transitions the auction from active to ended. Returns
	// ErrConflict when the auction is already terminal; exactly one concurrent
	// caller wins this transition.
	MarkEnded(ctx context.Context, auctionID string) error

	// MarkCancelled transitions the auction from active to cancelled with the
	// same exactly-once guarantee as MarkEnded.
	MarkCancelled(ctx context.Context, auctionID string) error

	SetWinner(ctx context.Context, auctionID, winnerID string) error

	// GetWinningBid returns the bid currently marked winning, or ErrNotFound.
	GetWinningBid(ctx context.Context, auctionID string) (*Bid, error)
	UpdateBidStatus(ctx context.Context, bidID string, status BidStatus) error

	// FinalizeLosingBids marks every non-terminal bid on the auction as lost,
	// except the bid identified by excludeBidID (empty to finalize all).
	FinalizeLosingBids(ctx context.Context, auctionID, excludeBidID string) error

	// ListBidsForAuction returns bids ordered by amount descending.
	ListBidsForAuction(ctx context.Context, auctionID string) ([]*Bid, error)
	// ListBidsForBidder returns the bidder's bids, newest first.
	ListBidsForBidder(ctx context.Context, bidderID string) ([]*Bid, error)
}

type WatchlistStore interface {
	AddWatch(ctx context.Context, item *WatchlistItem) error
	RemoveWatch(ctx context.Context, userID, auctionID string) error
	ListWatchedAuctions(ctx context.Context, userID string) ([]string, error)
	ListWatchers(ctx context.Context, auctionID string) ([]string, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// Notifier publishes events to interested parties. Publishing is best-effort
// from the bidding service's perspective: a delivery failure never rolls back
// the mutation that already committed.
type Notifier interface {
	Publish(ctx context.Context, event *Event) error
}

type EventHandler func(event *Event) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// Notification fan-out to connected clients.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// Leader election for the settlement sweeper.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	BroadcastToAuction(auctionID string, message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
