package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/galvin1912/auction-web-app/pkg/logger"
)

// WebSocketConnection wraps a gorilla connection. Writes are serialized with a
// mutex: the event-listener fan-out and the per-connection message loop both
// send, and gorilla permits only one concurrent writer.
type WebSocketConnection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	userID    string
	auctionID string
	log       logger.Logger
}

func NewWebSocketConnection(conn *websocket.Conn, userID, auctionID string, log logger.Logger) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
		log:       log,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}

func (wsc *WebSocketConnection) AuctionID() string {
	return wsc.auctionID
}
