package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/infrastructure/memory"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

func newWatchlistFixture(t *testing.T) (*WatchlistService, *BiddingService, *fakeClock) {
	t.Helper()
	store := memory.NewAuctionStore()
	clock := newFakeClock()
	bidding := NewBiddingService(store, clock, nil, Policy{}, logger.Nop())
	watchlist := NewWatchlistService(memory.NewWatchlistStore(), bidding, clock)
	return watchlist, bidding, clock
}

func TestAddToWatchlist(t *testing.T) {
	ctx := context.Background()
	watchlist, bidding, clock := newWatchlistFixture(t)
	auction := createAuction(t, bidding, clock, 100, 0)

	item, err := watchlist.AddToWatchlist(ctx, "user-1", auction.ID)
	require.NoError(t, err)
	require.Equal(t, auction.ID, item.AuctionID)

	// Watching twice is a no-op.
	_, err = watchlist.AddToWatchlist(ctx, "user-1", auction.ID)
	require.NoError(t, err)

	auctions, err := watchlist.ListWatchlist(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, auctions, 1)
}

func TestAddToWatchlist_RejectsMissingAndClosed(t *testing.T) {
	ctx := context.Background()
	watchlist, bidding, clock := newWatchlistFixture(t)

	_, err := watchlist.AddToWatchlist(ctx, "user-1", "auction-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	auction := createAuction(t, bidding, clock, 100, 0)
	clock.Advance(2 * time.Hour)

	// The expired auction is settled on the way in and refused.
	_, err = watchlist.AddToWatchlist(ctx, "user-1", auction.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRemoveFromWatchlist(t *testing.T) {
	ctx := context.Background()
	watchlist, bidding, clock := newWatchlistFixture(t)
	auction := createAuction(t, bidding, clock, 100, 0)

	_, err := watchlist.AddToWatchlist(ctx, "user-1", auction.ID)
	require.NoError(t, err)

	require.NoError(t, watchlist.RemoveFromWatchlist(ctx, "user-1", auction.ID))
	require.ErrorIs(t, watchlist.RemoveFromWatchlist(ctx, "user-1", auction.ID), domain.ErrNotFound)
}

func TestListWatchlist_SettlesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	watchlist, bidding, clock := newWatchlistFixture(t)

	auction, err := bidding.CreateAuction(ctx, CreateAuctionInput{
		Title: "Short auction", SellerID: "seller-1", StartingPrice: 50,
		EndTime: clock.Now().Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = watchlist.AddToWatchlist(ctx, "user-1", auction.ID)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	auctions, err := watchlist.ListWatchlist(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, auctions, 1)
	require.Equal(t, domain.AuctionEnded, auctions[0].Status)
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewNotificationStore()
	service := NewNotificationService(store)

	require.NoError(t, store.CreateNotification(ctx, &domain.Notification{
		ID: "n-1", UserID: "user-1", Type: "outbid", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.CreateNotification(ctx, &domain.Notification{
		ID: "n-2", UserID: "user-1", Type: "auction_won", CreatedAt: time.Now().UTC().Add(time.Second),
	}))

	notifications, err := service.ListNotifications(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	require.Equal(t, "n-2", notifications[0].ID, "newest first")

	count, err := service.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, service.MarkRead(ctx, "n-1", "user-1"))
	count, err = service.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.ErrorIs(t, service.MarkRead(ctx, "n-missing", "user-1"), domain.ErrNotFound)

	require.NoError(t, service.MarkAllRead(ctx, "user-1"))
	count, err = service.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	_, err = service.ListNotifications(ctx, "", 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}
