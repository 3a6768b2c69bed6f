package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/memory"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

type fakeFanout struct {
	mu         sync.Mutex
	broadcasts map[string][]interface{} // auctionID -> messages
	pushes     map[string][]interface{} // userID -> messages
	closed     []string
}

func newFakeFanout() *fakeFanout {
	return &fakeFanout{
		broadcasts: make(map[string][]interface{}),
		pushes:     make(map[string][]interface{}),
	}
}

func (f *fakeFanout) BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts[auctionID] = append(f.broadcasts[auctionID], message)
	return nil
}

func (f *fakeFanout) NotifyUser(ctx context.Context, userID string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes[userID] = append(f.pushes[userID], message)
	return nil
}

type fakeConnectionManager struct {
	fanout *fakeFanout
}

func (m *fakeConnectionManager) RegisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	return nil
}

func (m *fakeConnectionManager) UnregisterConnection(userID, auctionID string) error {
	return nil
}

func (m *fakeConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	return m.fanout.BroadcastToAuction(context.Background(), auctionID, message)
}

func (m *fakeConnectionManager) NotifyUser(userID string, message interface{}) error {
	return m.fanout.NotifyUser(context.Background(), userID, message)
}

func (m *fakeConnectionManager) CloseAndUnregisterConnections(auctionID string) error {
	m.fanout.mu.Lock()
	defer m.fanout.mu.Unlock()
	m.fanout.closed = append(m.fanout.closed, auctionID)
	return nil
}

type listenerFixture struct {
	listener      *EventListener
	auctions      *memory.AuctionStore
	watchlist     *memory.WatchlistStore
	notifications *memory.NotificationStore
	fanout        *fakeFanout
}

func newListenerFixture(t *testing.T) *listenerFixture {
	t.Helper()
	fanout := newFakeFanout()
	fixture := &listenerFixture{
		auctions:      memory.NewAuctionStore(),
		watchlist:     memory.NewWatchlistStore(),
		notifications: memory.NewNotificationStore(),
		fanout:        fanout,
	}
	fixture.listener = NewEventListener(
		fixture.auctions,
		fixture.watchlist,
		fixture.notifications,
		fanout,
		fanout,
		&fakeConnectionManager{fanout: fanout},
		logger.Nop(),
	)
	return fixture
}

func (f *listenerFixture) seedAuction(t *testing.T) {
	t.Helper()
	require.NoError(t, f.auctions.CreateAuction(context.Background(), &domain.Auction{
		ID:           "auction-1",
		Title:        "Vintage camera",
		SellerID:     "seller-1",
		CurrentPrice: 150,
		EndTime:      time.Now().Add(time.Hour),
		Status:       domain.AuctionActive,
	}))
}

func (f *listenerFixture) watch(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, f.watchlist.AddWatch(context.Background(), &domain.WatchlistItem{
		ID: "watch-" + userID, UserID: userID, AuctionID: "auction-1",
	}))
}

func notificationTypes(t *testing.T, store *memory.NotificationStore, userID string) []string {
	t.Helper()
	notifications, err := store.ListNotifications(context.Background(), userID, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(notifications))
	for _, n := range notifications {
		types = append(types, n.Type)
	}
	return types
}

func TestEventListener_BidAccepted(t *testing.T) {
	fixture := newListenerFixture(t)
	fixture.seedAuction(t)
	fixture.watch(t, "watcher-1")
	fixture.watch(t, "bidder-1")

	err := fixture.listener.handleEvent(&domain.Event{
		Type:      domain.EventBidAccepted,
		AuctionID: "auction-1",
		UserID:    "bidder-1",
		Amount:    150,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.Len(t, fixture.fanout.broadcasts["auction-1"], 1)

	// Watchers get notified, the bidder never hears about their own bid.
	require.Equal(t, []string{"new_bid"}, notificationTypes(t, fixture.notifications, "watcher-1"))
	require.Empty(t, notificationTypes(t, fixture.notifications, "bidder-1"))
	require.Len(t, fixture.fanout.pushes["watcher-1"], 1)
}

func TestEventListener_BidOutbid(t *testing.T) {
	fixture := newListenerFixture(t)

	err := fixture.listener.handleEvent(&domain.Event{
		Type:      domain.EventBidOutbid,
		AuctionID: "auction-1",
		UserID:    "bidder-1",
		Amount:    200,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"outbid"}, notificationTypes(t, fixture.notifications, "bidder-1"))

	notifications, err := fixture.notifications.ListNotifications(context.Background(), "bidder-1", 0)
	require.NoError(t, err)
	require.Contains(t, notifications[0].Message, "$200.00")
}

func TestEventListener_AuctionEnded_WithWinner(t *testing.T) {
	fixture := newListenerFixture(t)
	fixture.seedAuction(t)

	err := fixture.listener.handleEvent(&domain.Event{
		Type:      domain.EventAuctionEnded,
		AuctionID: "auction-1",
		WinnerID:  "bidder-1",
		Amount:    150,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"auction_won"}, notificationTypes(t, fixture.notifications, "bidder-1"))
	require.Equal(t, []string{"auction_ended"}, notificationTypes(t, fixture.notifications, "seller-1"))
	require.Len(t, fixture.fanout.broadcasts["auction-1"], 1)
	require.Equal(t, []string{"auction-1"}, fixture.fanout.closed)
}

func TestEventListener_AuctionEnded_NoWinner(t *testing.T) {
	fixture := newListenerFixture(t)
	fixture.seedAuction(t)

	err := fixture.listener.handleEvent(&domain.Event{
		Type:      domain.EventAuctionEnded,
		AuctionID: "auction-1",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"auction_ended"}, notificationTypes(t, fixture.notifications, "seller-1"))

	notifications, err := fixture.notifications.ListNotifications(context.Background(), "seller-1", 0)
	require.NoError(t, err)
	require.Contains(t, notifications[0].Message, "without a winner")
}

func TestEventListener_AuctionCancelled(t *testing.T) {
	fixture := newListenerFixture(t)
	fixture.seedAuction(t)

	err := fixture.listener.handleEvent(&domain.Event{
		Type:      domain.EventAuctionCancelled,
		AuctionID: "auction-1",
		UserID:    "seller-1",
	})
	require.NoError(t, err)

	require.Len(t, fixture.fanout.broadcasts["auction-1"], 1)
	require.Equal(t, []string{"auction-1"}, fixture.fanout.closed)
}

func TestEventListener_UnknownEventType(t *testing.T) {
	fixture := newListenerFixture(t)

	err := fixture.listener.handleEvent(&domain.Event{Type: "mystery"})
	require.Error(t, err)
}
