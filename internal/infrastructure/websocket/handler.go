package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/internal/services"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades watchers and bidders onto an auction channel.
// Bids may also be placed over the socket; the reply carries the stable
// rejection reason code when admission fails.
type WebSocketHandler struct {
	bidding     *services.BiddingService
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(bidding *services.BiddingService,
	connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		bidding:     bidding,
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	// Settles lazily, so expired auctions reject the connection.
	auction, err := h.bidding.GetAuction(r.Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if auction.Status.Terminal() {
		http.Error(w, "auction is no longer active", http.StatusForbidden)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, userID, auctionID, h.log)

	if err := h.connManager.RegisterConnection(userID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.handleMessages(wsConn, userID, auctionID)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Connection read failed", "user_id", userID, "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "place_bid":
			h.handleBidMessage(conn, userID, auctionID, msg)
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *WebSocketConnection, userID, auctionID string, msg map[string]interface{}) {
	amount, ok := msg["amount"].(float64)
	if !ok {
		conn.Send(map[string]string{"type": "error", "message": "invalid amount"})
		return
	}

	bid, err := h.bidding.PlaceBid(context.Background(), auctionID, userID, amount)
	if err != nil {
		if rejected, ok := domain.AsBidRejected(err); ok {
			conn.Send(map[string]interface{}{
				"type":          "bid_rejected",
				"reason":        rejected.Reason,
				"message":       rejected.Message,
				"current_price": rejected.CurrentPrice,
			})
			return
		}

		h.log.Error("Failed to place bid", "auction_id", auctionID, "error", err)
		conn.Send(map[string]string{"type": "error", "message": "failed to place bid"})
		return
	}

	conn.Send(map[string]interface{}{
		"type":   "bid_accepted",
		"bid_id": bid.ID,
		"amount": bid.Amount,
	})
}
