package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/pkg/utils"
)

// WatchlistService lets users follow auctions they have not bid on.
type WatchlistService struct {
	store   domain.WatchlistStore
	bidding *BiddingService
	clock   domain.Clock
}

func NewWatchlistService(store domain.WatchlistStore, bidding *BiddingService, clock domain.Clock) *WatchlistService {
	return &WatchlistService{store: store, bidding: bidding, clock: clock}
}

func (s *WatchlistService) AddToWatchlist(ctx context.Context, userID, auctionID string) (*domain.WatchlistItem, error) {
	if userID == "" || auctionID == "" {
		return nil, fmt.Errorf("%w: user and auction are required", ErrInvalidInput)
	}

	// Settles lazily, so users cannot start watching an expired auction.
	auction, err := s.bidding.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status.Terminal() {
		return nil, fmt.Errorf("%w: auction is %s", ErrInvalidInput, auction.Status)
	}

	item := &domain.WatchlistItem{
		ID:        utils.GenerateID("watch"),
		UserID:    userID,
		AuctionID: auctionID,
		CreatedAt: s.clock.Now().UTC(),
	}

	if err := s.store.AddWatch(ctx, item); err != nil {
		// Watching twice is a no-op, not an error.
		if errors.Is(err, domain.ErrConflict) {
			return item, nil
		}
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}

	return item, nil
}

func (s *WatchlistService) RemoveFromWatchlist(ctx context.Context, userID, auctionID string) error {
	if userID == "" || auctionID == "" {
		return fmt.Errorf("%w: user and auction are required", ErrInvalidInput)
	}
	return s.store.RemoveWatch(ctx, userID, auctionID)
}

// ListWatchlist returns the auctions the user watches, freshly settled.
func (s *WatchlistService) ListWatchlist(ctx context.Context, userID string) ([]*domain.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}

	auctionIDs, err := s.store.ListWatchedAuctions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	auctions := make([]*domain.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		auction, err := s.bidding.GetAuction(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, nil
}
