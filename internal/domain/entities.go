package domain

import (
	"time"
)

type Auction struct {
	ID            string
	Title         string
	Description   string
	SellerID      string
	Category      string
	StartingPrice float64
	CurrentPrice  float64
	ReservePrice  float64 // 0 means no reserve
	EndTime       time.Time
	Status        AuctionStatus
	WinnerID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasReserve reports whether the seller set a reserve price.
func (a *Auction) HasReserve() bool {
	return a.ReservePrice > 0
}

type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota
	AuctionEnded
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further bids are admissible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded || s == AuctionCancelled
}

type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    float64
	Status    BidStatus
	CreatedAt time.Time
}

type BidStatus string

const (
	BidWinning BidStatus = "winning"
	BidOutbid  BidStatus = "outbid"
	BidWon     BidStatus = "won"
	BidLost    BidStatus = "lost"
)

// BidList is the explicit list-plus-count shape returned by bid queries.
type BidList struct {
	Bids  []*Bid `json:"bids"`
	Count int    `json:"count"`
}

// SettlementResult records the outcome of ending an auction. Settling an
// already-terminal auction returns the recorded result unchanged.
type SettlementResult struct {
	AuctionID  string
	Status     AuctionStatus
	WinnerID   string // empty when the auction ended without a winner
	FinalPrice float64
	ReserveMet bool
}

type WatchlistItem struct {
	ID        string
	UserID    string
	AuctionID string
	CreatedAt time.Time
}

type Notification struct {
	ID        string
	UserID    string
	AuctionID string
	Type      string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

type Event struct {
	Type      EventType `json:"type"`
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	WinnerID  string    `json:"winner_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type EventType string

const (
	EventBidAccepted      EventType = "bid_accepted"
	EventBidOutbid        EventType = "bid_outbid"
	EventAuctionCreated   EventType = "auction_created"
	EventAuctionEnded     EventType = "auction_ended"
	EventAuctionCancelled EventType = "auction_cancelled"
)

// AuctionFilters narrows ListActiveAuctions results.
type AuctionFilters struct {
	Search   string
	Category string
	MinPrice float64
	MaxPrice float64
	SortBy   string // created_at | end_time | current_price | title
	SortDesc bool
	Limit    int
	Offset   int
}
