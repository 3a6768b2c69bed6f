package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

func seedAuction(t *testing.T, store *AuctionStore) *domain.Auction {
	t.Helper()
	auction := &domain.Auction{
		ID:            "auction-1",
		Title:         "Test auction",
		SellerID:      "seller-1",
		StartingPrice: 100,
		CurrentPrice:  100,
		EndTime:       time.Now().Add(time.Hour),
		Status:        domain.AuctionActive,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreateAuction(context.Background(), auction))
	return auction
}

func newBid(id, bidderID string, amount float64) *domain.Bid {
	return &domain.Bid{
		ID:        id,
		AuctionID: "auction-1",
		BidderID:  bidderID,
		Amount:    amount,
		Status:    domain.BidWinning,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAuction_DuplicateID(t *testing.T) {
	store := NewAuctionStore()
	auction := seedAuction(t, store)

	err := store.CreateAuction(context.Background(), auction)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetAuction_ReturnsCopy(t *testing.T) {
	store := NewAuctionStore()
	seedAuction(t, store)

	first, err := store.GetAuction(context.Background(), "auction-1")
	require.NoError(t, err)

	first.CurrentPrice = 999

	second, err := store.GetAuction(context.Background(), "auction-1")
	require.NoError(t, err)
	require.Equal(t, 100.0, second.CurrentPrice)
}

func TestAcceptBid_GuardsOnExpectedPrice(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	previous, err := store.AcceptBid(ctx, "auction-1", 100, newBid("bid-1", "bidder-1", 110))
	require.NoError(t, err)
	require.Nil(t, previous, "first bid has no previous winner")

	// Stale expected price loses the race.
	_, err = store.AcceptBid(ctx, "auction-1", 100, newBid("bid-2", "bidder-2", 120))
	require.ErrorIs(t, err, domain.ErrConflict)

	// Fresh expected price wins and reports the demoted bid.
	previous, err = store.AcceptBid(ctx, "auction-1", 110, newBid("bid-3", "bidder-2", 120))
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.Equal(t, "bid-1", previous.ID)
	require.Equal(t, domain.BidWinning, previous.Status, "previous bid reported with its pre-demotion status")

	demoted, err := store.ListBidsForAuction(ctx, "auction-1")
	require.NoError(t, err)
	for _, bid := range demoted {
		if bid.ID == "bid-1" {
			require.Equal(t, domain.BidOutbid, bid.Status)
		}
	}

	auction, err := store.GetAuction(ctx, "auction-1")
	require.NoError(t, err)
	require.Equal(t, 120.0, auction.CurrentPrice)
}

func TestAcceptBid_RejectsTerminalAuction(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	require.NoError(t, store.MarkEnded(ctx, "auction-1"))

	_, err := store.AcceptBid(ctx, "auction-1", 100, newBid("bid-1", "bidder-1", 110))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestAcceptBid_UnknownAuction(t *testing.T) {
	store := NewAuctionStore()

	_, err := store.AcceptBid(context.Background(), "auction-missing", 100, newBid("bid-1", "bidder-1", 110))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAcceptBid_ConcurrentSameExpectedPrice(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	const contenders = 20
	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bid := newBid(fmt.Sprintf("bid-%d", i), fmt.Sprintf("bidder-%d", i), 110)
			_, errs[i] = store.AcceptBid(ctx, "auction-1", 100, bid)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			require.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	require.Equal(t, 1, accepted, "same expected price admits exactly one bid")

	auction, err := store.GetAuction(ctx, "auction-1")
	require.NoError(t, err)
	require.Equal(t, 110.0, auction.CurrentPrice)
}

func TestMarkEnded_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	const settlers = 10
	var wg sync.WaitGroup
	errs := make([]error, settlers)

	for i := 0; i < settlers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.MarkEnded(ctx, "auction-1")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, domain.ErrConflict)
		}
	}
	require.Equal(t, 1, won, "exactly one caller wins the transition")

	auction, err := store.GetAuction(ctx, "auction-1")
	require.NoError(t, err)
	require.Equal(t, domain.AuctionEnded, auction.Status)
}

func TestMarkCancelled_ConflictsWithEnded(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	require.NoError(t, store.MarkEnded(ctx, "auction-1"))
	require.ErrorIs(t, store.MarkCancelled(ctx, "auction-1"), domain.ErrConflict)
}

func TestFinalizeLosingBids_ExcludesWinner(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	_, err := store.AcceptBid(ctx, "auction-1", 100, newBid("bid-1", "bidder-1", 110))
	require.NoError(t, err)
	_, err = store.AcceptBid(ctx, "auction-1", 110, newBid("bid-2", "bidder-2", 120))
	require.NoError(t, err)

	require.NoError(t, store.UpdateBidStatus(ctx, "bid-2", domain.BidWon))
	require.NoError(t, store.FinalizeLosingBids(ctx, "auction-1", "bid-2"))

	bids, err := store.ListBidsForAuction(ctx, "auction-1")
	require.NoError(t, err)
	for _, bid := range bids {
		switch bid.ID {
		case "bid-2":
			require.Equal(t, domain.BidWon, bid.Status)
		default:
			require.Equal(t, domain.BidLost, bid.Status)
		}
	}
}

func TestGetWinningBid(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()
	seedAuction(t, store)

	_, err := store.GetWinningBid(ctx, "auction-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.AcceptBid(ctx, "auction-1", 100, newBid("bid-1", "bidder-1", 110))
	require.NoError(t, err)
	_, err = store.AcceptBid(ctx, "auction-1", 110, newBid("bid-2", "bidder-2", 120))
	require.NoError(t, err)

	winning, err := store.GetWinningBid(ctx, "auction-1")
	require.NoError(t, err)
	require.Equal(t, "bid-2", winning.ID)
}

func TestListActiveAuctions_FiltersAndPagination(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()

	base := time.Now().UTC()
	for i, spec := range []struct {
		title    string
		category string
		price    float64
	}{
		{"Antique clock", "collectibles", 50},
		{"Road bike", "sports", 300},
		{"Pocket watch", "collectibles", 120},
	} {
		require.NoError(t, store.CreateAuction(ctx, &domain.Auction{
			ID:           fmt.Sprintf("auction-%d", i),
			Title:        spec.title,
			Category:     spec.category,
			CurrentPrice: spec.price,
			EndTime:      base.Add(time.Hour),
			Status:       domain.AuctionActive,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	byCategory, err := store.ListActiveAuctions(ctx, domain.AuctionFilters{Category: "collectibles"})
	require.NoError(t, err)
	require.Len(t, byCategory, 2)

	paged, err := store.ListActiveAuctions(ctx, domain.AuctionFilters{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	require.Equal(t, "auction-1", paged[0].ID, "default order is creation time ascending")

	pastEnd, err := store.ListActiveAuctions(ctx, domain.AuctionFilters{Offset: 10})
	require.NoError(t, err)
	require.Empty(t, pastEnd)
}

func TestListExpiredActive(t *testing.T) {
	ctx := context.Background()
	store := NewAuctionStore()

	now := time.Now().UTC()
	require.NoError(t, store.CreateAuction(ctx, &domain.Auction{
		ID: "expired", Status: domain.AuctionActive, EndTime: now.Add(-time.Minute),
	}))
	require.NoError(t, store.CreateAuction(ctx, &domain.Auction{
		ID: "running", Status: domain.AuctionActive, EndTime: now.Add(time.Hour),
	}))
	require.NoError(t, store.CreateAuction(ctx, &domain.Auction{
		ID: "done", Status: domain.AuctionEnded, EndTime: now.Add(-time.Hour),
	}))

	expired, err := store.ListExpiredActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "expired", expired[0].ID)
}
