package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

type AuctionHandler struct {
	bidding *services.BiddingService
	log     logger.Logger
}

func NewAuctionHandler(bidding *services.BiddingService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		bidding: bidding,
		log:     log,
	}
}

type CreateAuctionRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SellerID      string    `json:"seller_id"`
	Category      string    `json:"category"`
	StartingPrice float64   `json:"starting_price"`
	ReservePrice  float64   `json:"reserve_price"`
	EndTime       time.Time `json:"end_time"`
}

type AuctionResponse struct {
	AuctionID     string    `json:"auction_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SellerID      string    `json:"seller_id"`
	Category      string    `json:"category,omitempty"`
	StartingPrice float64   `json:"starting_price"`
	CurrentPrice  float64   `json:"current_price"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	WinnerID      string    `json:"winner_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func auctionResponse(auction *domain.Auction) AuctionResponse {
	// The reserve price is deliberately absent: it is hidden from bidders.
	return AuctionResponse{
		AuctionID:     auction.ID,
		Title:         auction.Title,
		Description:   auction.Description,
		SellerID:      auction.SellerID,
		Category:      auction.Category,
		StartingPrice: auction.StartingPrice,
		CurrentPrice:  auction.CurrentPrice,
		EndTime:       auction.EndTime,
		Status:        auction.Status.String(),
		WinnerID:      auction.WinnerID,
		CreatedAt:     auction.CreatedAt,
	}
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	auction, err := h.bidding.CreateAuction(c.Request().Context(), services.CreateAuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		SellerID:      req.SellerID,
		Category:      req.Category,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create auction"})
	}

	return c.JSON(http.StatusCreated, auctionResponse(auction))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.bidding.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to get auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get auction"})
	}

	return c.JSON(http.StatusOK, auctionResponse(auction))
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	filters := domain.AuctionFilters{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		SortBy:   c.QueryParam("sort_by"),
		SortDesc: c.QueryParam("sort_order") == "desc",
	}
	bindFloat(c.QueryParam("min_price"), &filters.MinPrice)
	bindFloat(c.QueryParam("max_price"), &filters.MaxPrice)
	bindInt(c.QueryParam("limit"), &filters.Limit)
	bindInt(c.QueryParam("offset"), &filters.Offset)

	auctions, err := h.bidding.ListActiveAuctions(c.Request().Context(), filters)
	if err != nil {
		h.log.Error("Failed to list auctions", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list auctions"})
	}

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, auctionResponse(auction))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"auctions": responses,
		"count":    len(responses),
	})
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	auctionID := c.Param("id")
	requesterID := c.QueryParam("user_id")

	result, err := h.bidding.CancelAuction(c.Request().Context(), auctionID, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		case errors.Is(err, services.ErrNotSeller):
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		}
		h.log.Error("Failed to cancel auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to cancel auction"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"auction_id":  result.AuctionID,
		"status":      result.Status.String(),
		"final_price": result.FinalPrice,
	})
}
