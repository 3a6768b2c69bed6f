package domain

import (
	"errors"
	"fmt"
)

// Store-level errors
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("store unavailable")
)

// RejectReason is the stable code callers branch on. The message is for display.
type RejectReason string

const (
	ReasonNotFound      RejectReason = "not_found"
	ReasonAuctionClosed RejectReason = "auction_closed"
	ReasonSelfBid       RejectReason = "self_bid"
	ReasonInvalidAmount RejectReason = "invalid_amount"
	ReasonBidTooLow     RejectReason = "bid_too_low"
	ReasonBusy          RejectReason = "busy"
)

// BidRejectedError reports why a bid was not admitted. CurrentPrice carries the
// highest accepted amount at rejection time so the caller can retry correctly.
type BidRejectedError struct {
	Reason       RejectReason
	Message      string
	CurrentPrice float64
}

func (e *BidRejectedError) Error() string {
	return fmt.Sprintf("bid rejected (%s): %s", e.Reason, e.Message)
}

// Retryable reports whether the caller may usefully resubmit the same request.
func (e *BidRejectedError) Retryable() bool {
	return e.Reason == ReasonBusy
}

func RejectNotFound(auctionID string) *BidRejectedError {
	return &BidRejectedError{
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("auction %s does not exist", auctionID),
	}
}

func RejectAuctionClosed(status AuctionStatus) *BidRejectedError {
	return &BidRejectedError{
		Reason:  ReasonAuctionClosed,
		Message: fmt.Sprintf("this auction is no longer active (%s)", status),
	}
}

func RejectSelfBid() *BidRejectedError {
	return &BidRejectedError{
		Reason:  ReasonSelfBid,
		Message: "sellers cannot bid on their own auctions",
	}
}

func RejectInvalidAmount(amount float64) *BidRejectedError {
	return &BidRejectedError{
		Reason:  ReasonInvalidAmount,
		Message: fmt.Sprintf("bid amount %v is not a positive number", amount),
	}
}

func RejectBidTooLow(currentPrice float64) *BidRejectedError {
	return &BidRejectedError{
		Reason:       ReasonBidTooLow,
		Message:      fmt.Sprintf("bid must be higher than the current highest bid of $%.2f", currentPrice),
		CurrentPrice: currentPrice,
	}
}

func RejectBusy() *BidRejectedError {
	return &BidRejectedError{
		Reason:  ReasonBusy,
		Message: "the auction is receiving too many bids, please try again",
	}
}

// AsBidRejected unwraps err into a *BidRejectedError if it is one.
func AsBidRejected(err error) (*BidRejectedError, bool) {
	var rej *BidRejectedError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
