package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// AuctionStore is a concurrency-safe in-memory implementation of
// domain.AuctionStore, used by tests and local development. All conditional
// guards run under one lock, which gives the same per-auction serialization
// the MySQL store gets from its transactional conditional updates.
type AuctionStore struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
	bids     map[string][]*domain.Bid // auctionID -> bids in insertion order
	bidsByID map[string]*domain.Bid
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{
		auctions: make(map[string]*domain.Auction),
		bids:     make(map[string][]*domain.Bid),
		bidsByID: make(map[string]*domain.Bid),
	}
}

func (s *AuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return domain.ErrConflict
	}

	stored := *auction
	s.auctions[auction.ID] = &stored
	return nil
}

func (s *AuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	copied := *auction
	return &copied, nil
}

func (s *AuctionStore) ListActiveAuctions(ctx context.Context, filters domain.AuctionFilters) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.Auction
	for _, auction := range s.auctions {
		if auction.Status != domain.AuctionActive {
			continue
		}
		if !matchesFilters(auction, filters) {
			continue
		}
		copied := *auction
		results = append(results, &copied)
	}

	sortAuctions(results, filters)

	if filters.Offset > 0 {
		if filters.Offset >= len(results) {
			return nil, nil
		}
		results = results[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(results) {
		results = results[:filters.Limit]
	}

	return results, nil
}

func (s *AuctionStore) ListExpiredActive(ctx context.Context, before time.Time) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.Auction
	for _, auction := range s.auctions {
		if auction.Status == domain.AuctionActive && !auction.EndTime.After(before) {
			copied := *auction
			results = append(results, &copied)
		}
	}

	return results, nil
}

func (s *AuctionStore) AcceptBid(ctx context.Context, auctionID string, expectedPrice float64, bid *domain.Bid) (*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if auction.Status != domain.AuctionActive || auction.CurrentPrice != expectedPrice {
		return nil, domain.ErrConflict
	}

	var previous *domain.Bid
	for _, existing := range s.bids[auctionID] {
		if existing.Status == domain.BidWinning {
			existing.Status = domain.BidOutbid
			copied := *existing
			copied.Status = domain.BidWinning // status as observed before demotion
			previous = &copied
			break
		}
	}

	stored := *bid
	s.bids[auctionID] = append(s.bids[auctionID], &stored)
	s.bidsByID[bid.ID] = &stored

	auction.CurrentPrice = bid.Amount
	auction.UpdatedAt = bid.CreatedAt

	return previous, nil
}

func (s *AuctionStore) MarkEnded(ctx context.Context, auctionID string) error {
	return s.transition(auctionID, domain.AuctionEnded)
}

func (s *AuctionStore) MarkCancelled(ctx context.Context, auctionID string) error {
	return s.transition(auctionID, domain.AuctionCancelled)
}

func (s *AuctionStore) transition(auctionID string, to domain.AuctionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	if auction.Status != domain.AuctionActive {
		return domain.ErrConflict
	}

	auction.Status = to
	auction.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *AuctionStore) SetWinner(ctx context.Context, auctionID, winnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}

	auction.WinnerID = winnerID
	auction.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *AuctionStore) GetWinningBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, bid := range s.bids[auctionID] {
		if bid.Status == domain.BidWinning {
			copied := *bid
			return &copied, nil
		}
	}

	return nil, domain.ErrNotFound
}

func (s *AuctionStore) UpdateBidStatus(ctx context.Context, bidID string, status domain.BidStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bid, ok := s.bidsByID[bidID]
	if !ok {
		return domain.ErrNotFound
	}

	bid.Status = status
	return nil
}

func (s *AuctionStore) FinalizeLosingBids(ctx context.Context, auctionID, excludeBidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bid := range s.bids[auctionID] {
		if bid.ID == excludeBidID {
			continue
		}
		if bid.Status == domain.BidWinning || bid.Status == domain.BidOutbid {
			bid.Status = domain.BidLost
		}
	}

	return nil
}

func (s *AuctionStore) ListBidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, bid := range s.bids[auctionID] {
		copied := *bid
		bids = append(bids, &copied)
	}

	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Amount > bids[j].Amount
	})

	return bids, nil
}

func (s *AuctionStore) ListBidsForBidder(ctx context.Context, bidderID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bids []*domain.Bid
	for _, auctionBids := range s.bids {
		for _, bid := range auctionBids {
			if bid.BidderID == bidderID {
				copied := *bid
				bids = append(bids, &copied)
			}
		}
	}

	sort.Slice(bids, func(i, j int) bool {
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})

	return bids, nil
}

func matchesFilters(auction *domain.Auction, filters domain.AuctionFilters) bool {
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		if !strings.Contains(strings.ToLower(auction.Title), needle) &&
			!strings.Contains(strings.ToLower(auction.Description), needle) {
			return false
		}
	}
	if filters.Category != "" && auction.Category != filters.Category {
		return false
	}
	if filters.MinPrice > 0 && auction.CurrentPrice < filters.MinPrice {
		return false
	}
	if filters.MaxPrice > 0 && auction.CurrentPrice > filters.MaxPrice {
		return false
	}
	return true
}

func sortAuctions(auctions []*domain.Auction, filters domain.AuctionFilters) {
	less := func(i, j int) bool { return auctions[i].CreatedAt.Before(auctions[j].CreatedAt) }

	switch filters.SortBy {
	case "end_time":
		less = func(i, j int) bool { return auctions[i].EndTime.Before(auctions[j].EndTime) }
	case "current_price":
		less = func(i, j int) bool { return auctions[i].CurrentPrice < auctions[j].CurrentPrice }
	case "title":
		less = func(i, j int) bool { return auctions[i].Title < auctions[j].Title }
	}

	if filters.SortDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}

	sort.Slice(auctions, less)
}
