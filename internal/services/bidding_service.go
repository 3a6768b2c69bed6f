package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/pkg/logger"
	"github.com/galvin1912/auction-web-app/pkg/utils"
)

const defaultMaxBidRetries = 3

// Policy holds the tunable bidding rules.
type Policy struct {
	// MaxRetries bounds admission retries after losing a race on the auction row.
	MaxRetries int
	// EnforceReserve fails settlement with no winner when the final price is
	// below the seller's reserve.
	EnforceReserve bool
}

// BiddingService owns bid admission, auction pricing, and auction-close
// settlement. It is the sole writer of Auction.CurrentPrice/Status/WinnerID and
// Bid.Status; the store persists what it is told and serializes concurrent
// writers per auction.
type BiddingService struct {
	store    domain.AuctionStore
	clock    domain.Clock
	notifier domain.Notifier
	policy   Policy
	log      logger.Logger
}

func NewBiddingService(
	store domain.AuctionStore,
	clock domain.Clock,
	notifier domain.Notifier,
	policy Policy,
	log logger.Logger,
) *BiddingService {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = defaultMaxBidRetries
	}
	return &BiddingService{
		store:    store,
		clock:    clock,
		notifier: notifier,
		policy:   policy,
		log:      log,
	}
}

// CreateAuctionInput carries everything needed to open an auction.
type CreateAuctionInput struct {
	Title         string
	Description   string
	SellerID      string
	Category      string
	StartingPrice float64
	ReservePrice  float64
	EndTime       time.Time
}

var ErrInvalidInput = errors.New("invalid input")

func (s *BiddingService) CreateAuction(ctx context.Context, input CreateAuctionInput) (*domain.Auction, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.SellerID == "" {
		return nil, fmt.Errorf("%w: seller is required", ErrInvalidInput)
	}
	if !(input.StartingPrice > 0) || math.IsInf(input.StartingPrice, 0) {
		return nil, fmt.Errorf("%w: starting price must be positive", ErrInvalidInput)
	}
	if !input.EndTime.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: end time must be in the future", ErrInvalidInput)
	}
	if input.ReservePrice != 0 && input.ReservePrice < input.StartingPrice {
		return nil, fmt.Errorf("%w: reserve price cannot be below the starting price", ErrInvalidInput)
	}

	now := s.clock.Now().UTC()
	auction := &domain.Auction{
		ID:            utils.GenerateID("auction"),
		Title:         input.Title,
		Description:   input.Description,
		SellerID:      input.SellerID,
		Category:      input.Category,
		StartingPrice: input.StartingPrice,
		CurrentPrice:  input.StartingPrice,
		ReservePrice:  input.ReservePrice,
		EndTime:       input.EndTime,
		Status:        domain.AuctionActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	s.publish(ctx, &domain.Event{
		Type:      domain.EventAuctionCreated,
		AuctionID: auction.ID,
		UserID:    auction.SellerID,
		Amount:    auction.StartingPrice,
		Timestamp: now,
	})

	s.log.Info("Auction created", "auction_id", auction.ID, "seller_id", auction.SellerID)
	return auction, nil
}

// PlaceBid validates and admits a bid. The check-then-act sequence is made
// atomic by the store's conditional AcceptBid; a lost race is re-validated
// against fresh state and retried up to Policy.MaxRetries times.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.Bid, error) {
	for attempt := 0; ; attempt++ {
		auction, err := s.store.GetAuction(ctx, auctionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.RejectNotFound(auctionID)
			}
			return nil, fmt.Errorf("place bid: load auction %s: %w", auctionID, err)
		}

		if auction.Status.Terminal() {
			return nil, domain.RejectAuctionClosed(auction.Status)
		}

		if !s.clock.Now().Before(auction.EndTime) {
			// Expired but not yet settled. Settle first so the caller
			// immediately observes final state on the next read.
			if _, err := s.Settle(ctx, auctionID); err != nil {
				s.log.Error("Lazy settlement on bid failed", "auction_id", auctionID, "error", err)
			}
			return nil, domain.RejectAuctionClosed(domain.AuctionEnded)
		}

		if bidderID == auction.SellerID {
			return nil, domain.RejectSelfBid()
		}

		if !(amount > 0) || math.IsInf(amount, 0) {
			return nil, domain.RejectInvalidAmount(amount)
		}

		// Ties always reject: strictly greater only.
		if amount <= auction.CurrentPrice {
			return nil, domain.RejectBidTooLow(auction.CurrentPrice)
		}

		bid := &domain.Bid{
			ID:        utils.GenerateID("bid"),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			Status:    domain.BidWinning,
			CreatedAt: s.clock.Now().UTC(),
		}

		previous, err := s.store.AcceptBid(ctx, auctionID, auction.CurrentPrice, bid)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				if attempt+1 >= s.policy.MaxRetries {
					s.log.Warn("Bid admission gave up after retries",
						"auction_id", auctionID, "bidder_id", bidderID, "attempts", attempt+1)
					return nil, domain.RejectBusy()
				}
				continue
			}
			return nil, fmt.Errorf("place bid: accept bid on %s: %w", auctionID, err)
		}

		s.log.Info("Bid accepted",
			"auction_id", auctionID, "bidder_id", bidderID, "amount", amount)

		s.publish(ctx, &domain.Event{
			Type:      domain.EventBidAccepted,
			AuctionID: auctionID,
			UserID:    bidderID,
			Amount:    amount,
			Timestamp: bid.CreatedAt,
		})

		if previous != nil && previous.BidderID != bidderID {
			s.publish(ctx, &domain.Event{
				Type:      domain.EventBidOutbid,
				AuctionID: auctionID,
				UserID:    previous.BidderID,
				Amount:    amount,
				Timestamp: bid.CreatedAt,
			})
		}

		return bid, nil
	}
}

// Settle ends an expired auction exactly once and fixes the winner. The
// active-to-ended transition is the single point of mutual exclusion: only the
// caller that wins it emits the end event, everyone else observes the result.
// Finalization after the transition is idempotent, so a settle interrupted by
// a transient store failure is finished by the next call.
func (s *BiddingService) Settle(ctx context.Context, auctionID string) (*domain.SettlementResult, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("settle: load auction %s: %w", auctionID, err)
	}

	if auction.Status.Terminal() {
		return s.resumeSettlement(ctx, auction)
	}

	if err := s.store.MarkEnded(ctx, auctionID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent settle won the transition.
			auction, err = s.store.GetAuction(ctx, auctionID)
			if err != nil {
				return nil, fmt.Errorf("settle: reload auction %s: %w", auctionID, err)
			}
			return s.resumeSettlement(ctx, auction)
		}
		return nil, fmt.Errorf("settle: end auction %s: %w", auctionID, err)
	}

	result, err := s.finalizeEnded(ctx, auctionID, auction)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &domain.Event{
		Type:      domain.EventAuctionEnded,
		AuctionID: auctionID,
		WinnerID:  result.WinnerID,
		Amount:    result.FinalPrice,
		Timestamp: s.clock.Now().UTC(),
	})

	s.log.Info("Auction settled",
		"auction_id", auctionID, "winner_id", result.WinnerID, "final_price", result.FinalPrice)
	return result, nil
}

// resumeSettlement returns the recorded outcome for a terminal auction. An
// ended auction whose bids were never finalized was left behind by an
// interrupted settle; finalization is finished here before reporting.
func (s *BiddingService) resumeSettlement(ctx context.Context, auction *domain.Auction) (*domain.SettlementResult, error) {
	if auction.Status == domain.AuctionCancelled {
		// An interrupted cancel may have left bids unfinalized.
		if err := s.store.FinalizeLosingBids(ctx, auction.ID, ""); err != nil {
			return nil, fmt.Errorf("settle: finalize bids for %s: %w", auction.ID, err)
		}
		return s.settledResult(auction), nil
	}
	return s.finalizeEnded(ctx, auction.ID, auction)
}

// finalizeEnded fixes the winner and bid statuses for an auction that has
// transitioned to ended. Every step is idempotent; repeating after a partial
// failure converges on the same outcome.
func (s *BiddingService) finalizeEnded(ctx context.Context, auctionID string, auction *domain.Auction) (*domain.SettlementResult, error) {
	winning, err := s.store.GetWinningBid(ctx, auctionID)
	if errors.Is(err, domain.ErrNotFound) {
		// No bids, or a previous settle already finished. Report what the
		// auction records, re-read so a winner set by a concurrent finalize
		// is not missed.
		current, err := s.store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, fmt.Errorf("settle: reload auction %s: %w", auctionID, err)
		}
		return s.settledResult(current), nil
	}
	if err != nil {
		return nil, fmt.Errorf("settle: load winning bid for %s: %w", auctionID, err)
	}

	// The reserve check uses the winning amount, not the earlier auction
	// snapshot: a bid may have committed between the snapshot read and the
	// status transition.
	result := &domain.SettlementResult{
		AuctionID:  auctionID,
		Status:     domain.AuctionEnded,
		FinalPrice: winning.Amount,
		ReserveMet: !auction.HasReserve() || winning.Amount >= auction.ReservePrice,
	}

	if s.policy.EnforceReserve && !result.ReserveMet {
		// The highest bid never reached the reserve; the auction ends unsold.
		if err := s.store.FinalizeLosingBids(ctx, auctionID, ""); err != nil {
			return nil, fmt.Errorf("settle: finalize bids for %s: %w", auctionID, err)
		}
		s.log.Info("Auction ended below reserve",
			"auction_id", auctionID, "final_price", winning.Amount, "reserve", auction.ReservePrice)
		return result, nil
	}

	// Winner first: if a later step fails, a retry still finds the winning bid
	// and repeats from here.
	if err := s.store.SetWinner(ctx, auctionID, winning.BidderID); err != nil {
		return nil, fmt.Errorf("settle: set winner for %s: %w", auctionID, err)
	}
	if err := s.store.UpdateBidStatus(ctx, winning.ID, domain.BidWon); err != nil {
		return nil, fmt.Errorf("settle: mark bid won for %s: %w", auctionID, err)
	}
	if err := s.store.FinalizeLosingBids(ctx, auctionID, winning.ID); err != nil {
		return nil, fmt.Errorf("settle: finalize bids for %s: %w", auctionID, err)
	}
	result.WinnerID = winning.BidderID
	return result, nil
}

var ErrNotSeller = errors.New("only the seller can cancel an auction")

// CancelAuction administratively closes an active auction. All non-terminal
// bids become lost and no winner is recorded.
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID, requesterID string) (*domain.SettlementResult, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("cancel: load auction %s: %w", auctionID, err)
	}

	if requesterID != auction.SellerID {
		return nil, ErrNotSeller
	}

	if auction.Status.Terminal() {
		return s.resumeSettlement(ctx, auction)
	}

	if err := s.store.MarkCancelled(ctx, auctionID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			auction, err = s.store.GetAuction(ctx, auctionID)
			if err != nil {
				return nil, fmt.Errorf("cancel: reload auction %s: %w", auctionID, err)
			}
			return s.resumeSettlement(ctx, auction)
		}
		return nil, fmt.Errorf("cancel: mark auction %s cancelled: %w", auctionID, err)
	}

	if err := s.store.FinalizeLosingBids(ctx, auctionID, ""); err != nil {
		return nil, fmt.Errorf("cancel: finalize bids for %s: %w", auctionID, err)
	}

	s.publish(ctx, &domain.Event{
		Type:      domain.EventAuctionCancelled,
		AuctionID: auctionID,
		UserID:    requesterID,
		Timestamp: s.clock.Now().UTC(),
	})

	s.log.Info("Auction cancelled", "auction_id", auctionID)
	return &domain.SettlementResult{
		AuctionID:  auctionID,
		Status:     domain.AuctionCancelled,
		FinalPrice: auction.CurrentPrice,
	}, nil
}

// GetAuction returns the auction, settling it first if its deadline passed so
// readers never observe a stale active status.
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.Status == domain.AuctionActive && !s.clock.Now().Before(auction.EndTime) {
		if _, err := s.Settle(ctx, auctionID); err != nil {
			return nil, err
		}
		return s.store.GetAuction(ctx, auctionID)
	}

	return auction, nil
}

// ListActiveAuctions returns active auctions matching the filters. Expired
// entries are settled on the way out and excluded from the result.
func (s *BiddingService) ListActiveAuctions(ctx context.Context, filters domain.AuctionFilters) ([]*domain.Auction, error) {
	auctions, err := s.store.ListActiveAuctions(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}

	now := s.clock.Now()
	live := auctions[:0]
	for _, auction := range auctions {
		if !now.Before(auction.EndTime) {
			if _, err := s.Settle(ctx, auction.ID); err != nil {
				s.log.Error("Lazy settlement on list failed", "auction_id", auction.ID, "error", err)
			}
			continue
		}
		live = append(live, auction)
	}

	return live, nil
}

// ListBidsForAuction returns the auction's bids ordered by amount descending.
func (s *BiddingService) ListBidsForAuction(ctx context.Context, auctionID string) (*domain.BidList, error) {
	if _, err := s.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	bids, err := s.store.ListBidsForAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, err)
	}

	return &domain.BidList{Bids: bids, Count: len(bids)}, nil
}

// ListBidsForBidder returns the bidder's bids, newest first, with every owning
// auction settled if expired so bid statuses are final.
func (s *BiddingService) ListBidsForBidder(ctx context.Context, bidderID string) (*domain.BidList, error) {
	bids, err := s.store.ListBidsForBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("list bids for bidder %s: %w", bidderID, err)
	}

	settled := false
	seen := make(map[string]bool)
	for _, bid := range bids {
		if seen[bid.AuctionID] {
			continue
		}
		seen[bid.AuctionID] = true

		auction, err := s.store.GetAuction(ctx, bid.AuctionID)
		if err != nil {
			continue
		}
		if auction.Status == domain.AuctionActive && !s.clock.Now().Before(auction.EndTime) {
			if _, err := s.Settle(ctx, bid.AuctionID); err != nil {
				s.log.Error("Lazy settlement on bidder history failed",
					"auction_id", bid.AuctionID, "error", err)
				continue
			}
			settled = true
		}
	}

	if settled {
		bids, err = s.store.ListBidsForBidder(ctx, bidderID)
		if err != nil {
			return nil, fmt.Errorf("list bids for bidder %s: %w", bidderID, err)
		}
	}

	return &domain.BidList{Bids: bids, Count: len(bids)}, nil
}

// SettleExpired settles every active auction whose deadline has passed.
// Returns how many auctions were settled.
func (s *BiddingService) SettleExpired(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredActive(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("settle expired: %w", err)
	}

	settled := 0
	for _, auction := range expired {
		if _, err := s.Settle(ctx, auction.ID); err != nil {
			s.log.Error("Sweep settlement failed", "auction_id", auction.ID, "error", err)
			continue
		}
		settled++
	}

	return settled, nil
}

func (s *BiddingService) settledResult(auction *domain.Auction) *domain.SettlementResult {
	return &domain.SettlementResult{
		AuctionID:  auction.ID,
		Status:     auction.Status,
		WinnerID:   auction.WinnerID,
		FinalPrice: auction.CurrentPrice,
		ReserveMet: !auction.HasReserve() || auction.CurrentPrice >= auction.ReservePrice,
	}
}

// publish is fire-and-forget: a delivery failure never unwinds the mutation
// that already committed.
func (s *BiddingService) publish(ctx context.Context, event *domain.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event",
			"type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}
