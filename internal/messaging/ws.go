package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/middleware"
)

// event is the envelope pushed to thread subscribers. The protocol is
// server push only; client frames are read and discarded to detect
// disconnects.
type event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// thread fans events out to every open socket on one order.
type thread struct {
	mu      sync.RWMutex
	sockets map[*websocket.Conn]bool
}

var (
	threadsMu sync.RWMutex
	threads   = make(map[string]*thread)
)

func threadFor(orderID string) *thread {
	threadsMu.Lock()
	defer threadsMu.Unlock()
	if t, ok := threads[orderID]; ok {
		return t
	}
	t := &thread{sockets: make(map[*websocket.Conn]bool)}
	threads[orderID] = t
	return t
}

// publish takes the write lock, not a read lock: gorilla/websocket
// allows at most one concurrent writer per conn, and the webhook and
// HTTP handlers publish from separate goroutines.
func (t *thread) publish(evt event) {
	payload, _ := json.Marshal(evt)
	t.mu.Lock()
	defer t.mu.Unlock()
	for ws := range t.sockets {
		_ = ws.WriteMessage(websocket.TextMessage, payload)
	}
}

func (t *thread) attach(ws *websocket.Conn) {
	t.mu.Lock()
	t.sockets[ws] = true
	t.mu.Unlock()
}

func (t *thread) detach(ws *websocket.Conn) {
	t.mu.Lock()
	delete(t.sockets, ws)
	t.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ThreadWS upgrades to a websocket scoped to one order thread. Only the
// order's buyer and seller may subscribe.
func ThreadWS(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	var buyerID, sellerID string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT buyer_id, seller_id FROM orders WHERE id = $1`, orderID,
	).Scan(&buyerID, &sellerID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	if d := authz.IsOrderParticipant(sess, buyerID, sellerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	t := threadFor(orderID)
	t.attach(ws)
	t.publish(event{Type: "presence_join", Data: echo.Map{"user_id": sess.UserID}})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			t.detach(ws)
			_ = ws.Close()
			t.publish(event{Type: "presence_leave", Data: echo.Map{"user_id": sess.UserID}})
			break
		}
	}
	return nil
}

// PublishMessage pushes a freshly sent message to thread subscribers.
func PublishMessage(orderID string, message interface{}) {
	threadFor(orderID).publish(event{Type: "message_new", Data: message})
}

// PublishMessageRead pushes a read receipt to thread subscribers.
func PublishMessageRead(orderID string, payload interface{}) {
	threadFor(orderID).publish(event{Type: "message_read", Data: payload})
}

// PublishOrderStatus pushes order lifecycle changes so open threads see
// payment and delivery progress without polling.
func PublishOrderStatus(orderID, status string) {
	threadFor(orderID).publish(event{Type: "order_status", Data: echo.Map{
		"order_id": orderID,
		"status":   status,
	}})
}
