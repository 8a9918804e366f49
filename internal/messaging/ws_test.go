package messaging

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Publishers run from HTTP handlers and the payment webhook at the same
// time; every write on a conn must be serialized and every event must
// arrive intact.
func TestPublishSerializesConcurrentWriters(t *testing.T) {
	const orderID = "11111111-1111-1111-1111-111111111111"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		threadFor(orderID).attach(ws)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	th := threadFor(orderID)
	require.Eventually(t, func() bool {
		th.mu.RLock()
		defer th.mu.RUnlock()
		return len(th.sockets) == 1
	}, time.Second, 5*time.Millisecond)

	const publishers = 25
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			PublishOrderStatus(orderID, "ACCEPTED")
		}()
	}
	wg.Wait()

	for i := 0; i < publishers; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var evt struct {
			Type string `json:"type"`
			Data struct {
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, "order_status", evt.Type)
		assert.Equal(t, orderID, evt.Data.OrderID)
		assert.Equal(t, "ACCEPTED", evt.Data.Status)
	}
}
