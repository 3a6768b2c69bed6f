package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/galvin1912/auction-web-app/pkg/logger"
)

func TestConnection_ConcurrentSends(t *testing.T) {
	serverConns := make(chan *WebSocketConnection, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConns <- NewWebSocketConnection(conn, "user-1", "auction-1", logger.Nop())
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	conn := <-serverConns
	defer conn.Close()

	// The fan-out path and the message loop write from separate goroutines;
	// every message must arrive intact.
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := conn.Send(map[string]int{"writer": i, "seq": j}); err != nil {
					t.Errorf("send failed: %v", err)
					return
				}
			}
		}(i)
	}

	for received := 0; received < writers*perWriter; received++ {
		var msg map[string]int
		require.NoError(t, client.ReadJSON(&msg))
		require.Less(t, msg["seq"], perWriter)
	}
	wg.Wait()
}
