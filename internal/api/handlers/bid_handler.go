package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

type BidHandler struct {
	bidding *services.BiddingService
	log     logger.Logger
}

func NewBidHandler(bidding *services.BiddingService, log logger.Logger) *BidHandler {
	return &BidHandler{
		bidding: bidding,
		log:     log,
	}
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

type BidResponse struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func bidResponse(bid *domain.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.ID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Status:    string(bid.Status),
		CreatedAt: bid.CreatedAt,
	}
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	auctionID := c.Param("id")

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.BidderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bidder_id is required"})
	}

	bid, err := h.bidding.PlaceBid(c.Request().Context(), auctionID, req.BidderID, req.Amount)
	if err != nil {
		if rejected, ok := domain.AsBidRejected(err); ok {
			return c.JSON(rejectStatus(rejected.Reason), map[string]interface{}{
				"error":         rejected.Message,
				"reason":        rejected.Reason,
				"current_price": rejected.CurrentPrice,
			})
		}
		h.log.Error("Failed to place bid", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to place bid"})
	}

	return c.JSON(http.StatusCreated, bidResponse(bid))
}

func (h *BidHandler) ListAuctionBids(c echo.Context) error {
	auctionID := c.Param("id")

	bidList, err := h.bidding.ListBidsForAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to list bids", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list bids"})
	}

	return c.JSON(http.StatusOK, bidListResponse(bidList))
}

func (h *BidHandler) ListBidderBids(c echo.Context) error {
	bidderID := c.Param("id")

	bidList, err := h.bidding.ListBidsForBidder(c.Request().Context(), bidderID)
	if err != nil {
		h.log.Error("Failed to list bidder bids", "bidder_id", bidderID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list bids"})
	}

	return c.JSON(http.StatusOK, bidListResponse(bidList))
}

func bidListResponse(bidList *domain.BidList) map[string]interface{} {
	bids := make([]BidResponse, 0, len(bidList.Bids))
	for _, bid := range bidList.Bids {
		bids = append(bids, bidResponse(bid))
	}
	return map[string]interface{}{
		"bids":  bids,
		"count": bidList.Count,
	}
}

func rejectStatus(reason domain.RejectReason) int {
	switch reason {
	case domain.ReasonNotFound:
		return http.StatusNotFound
	case domain.ReasonAuctionClosed:
		return http.StatusGone
	case domain.ReasonSelfBid:
		return http.StatusForbidden
	case domain.ReasonBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusUnprocessableEntity
	}
}

func bindFloat(value string, target *float64) {
	if value == "" {
		return
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		*target = parsed
	}
}

func bindInt(value string, target *int) {
	if value == "" {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*target = parsed
	}
}
