package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/galvin1912/auction-web-app/internal/infrastructure/memory"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

func newHandlerFixture(t *testing.T) (*AuctionHandler, *BidHandler, *services.BiddingService) {
	t.Helper()
	bidding := services.NewBiddingService(
		memory.NewAuctionStore(), services.SystemClock{}, nil, services.Policy{}, logger.Nop())
	return NewAuctionHandler(bidding, logger.Nop()), NewBidHandler(bidding, logger.Nop()), bidding
}

func TestPlaceBidHandler(t *testing.T) {
	e := echo.New()
	auctionHandler, bidHandler, bidding := newHandlerFixture(t)

	createBody := fmt.Sprintf(
		`{"title":"Vintage camera","seller_id":"seller-1","starting_price":100,"end_time":%q}`,
		time.Now().Add(time.Hour).Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions", strings.NewReader(createBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, auctionHandler.CreateAuction(e.NewContext(req, rec)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created AuctionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.AuctionID)

	placeBid := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions/:id/bids", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(created.AuctionID)
		require.NoError(t, bidHandler.PlaceBid(c))
		return rec
	}

	rec = placeBid(`{"bidder_id":"bidder-1","amount":150}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var accepted BidResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.Equal(t, 150.0, accepted.Amount)
	require.Equal(t, "winning", accepted.Status)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReason string
	}{
		{
			name:       "too_low",
			body:       `{"bidder_id":"bidder-2","amount":150}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "bid_too_low",
		},
		{
			name:       "self_bid",
			body:       `{"bidder_id":"seller-1","amount":200}`,
			wantStatus: http.StatusForbidden,
			wantReason: "self_bid",
		},
		{
			name:       "invalid_amount",
			body:       `{"bidder_id":"bidder-2","amount":-5}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: "invalid_amount",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := placeBid(tc.body)
			require.Equal(t, tc.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.wantReason, body["reason"])
		})
	}

	t.Run("missing_bidder_id", func(t *testing.T) {
		rec := placeBid(`{"amount":300}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown_auction", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions/:id/bids",
			strings.NewReader(`{"bidder_id":"bidder-2","amount":300}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("auction-missing")
		require.NoError(t, bidHandler.PlaceBid(c))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cancelled_auction_is_gone", func(t *testing.T) {
		_, err := bidding.CancelAuction(context.Background(), created.AuctionID, "seller-1")
		require.NoError(t, err)

		rec := placeBid(`{"bidder_id":"bidder-2","amount":300}`)
		require.Equal(t, http.StatusGone, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "auction_closed", body["reason"])
	})
}

func TestListAuctionBidsHandler(t *testing.T) {
	e := echo.New()
	_, bidHandler, bidding := newHandlerFixture(t)

	auction, err := bidding.CreateAuction(context.Background(),
		services.CreateAuctionInput{
			Title: "Test", SellerID: "seller-1", StartingPrice: 100,
			EndTime: time.Now().Add(time.Hour),
		})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions/:id/bids", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(auction.ID)
	require.NoError(t, bidHandler.ListAuctionBids(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 0.0, body["count"])
}
