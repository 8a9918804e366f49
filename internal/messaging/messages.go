package messaging

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/middleware"
)

// orderParties resolves the buyer/seller pair for an order thread.
func orderParties(ctx context.Context, orderID string) (buyerID, sellerID string, err error) {
	err = db.Conn.QueryRow(ctx,
		`SELECT buyer_id, seller_id FROM orders WHERE id = $1`, orderID,
	).Scan(&buyerID, &sellerID)
	return buyerID, sellerID, err
}

// SendMessage posts into an order thread. Either participant may write;
// the other participant is the implicit recipient.
func SendMessage(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil || body.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	ctx := context.Background()
	buyerID, sellerID, err := orderParties(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}

	var recipientID string
	switch sess.UserID {
	case buyerID:
		recipientID = sellerID
	case sellerID:
		recipientID = buyerID
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	msgID := uuid.New().String()
	var createdAt time.Time
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO messages (id, order_id, sender_id, recipient_id, content)
         VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		msgID, orderID, sess.UserID, recipientID, body.Content,
	).Scan(&createdAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	PublishMessage(orderID, echo.Map{
		"id":           msgID,
		"order_id":     orderID,
		"sender_id":    sess.UserID,
		"recipient_id": recipientID,
		"content":      body.Content,
		"created_at":   createdAt.UTC().Format(time.RFC3339),
	})

	ref := orderID
	_ = alerts.CreateNotification(recipientID, "message:new", "New message on your order", body.Content, &ref)

	var recipientEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, recipientID).Scan(&recipientEmail)
	if recipientEmail != "" {
		_ = alerts.EnqueueMessageNew(orderID, sess.UserID, recipientID, recipientEmail, body.Content)
	}

	return c.JSON(http.StatusOK, echo.Map{"message_id": msgID})
}

// ListMessages returns the conversation for an order, oldest first. A
// `since` query param (RFC3339) limits the result to newer messages for
// incremental fetches.
func ListMessages(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	ctx := context.Background()
	buyerID, sellerID, err := orderParties(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}
	if d := authz.IsOrderParticipant(sess, buyerID, sellerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	query := `SELECT id, sender_id, recipient_id, content, created_at, read_at
              FROM messages WHERE order_id = $1 ORDER BY created_at ASC`
	args := []interface{}{orderID}
	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, use RFC3339"})
		}
		query = `SELECT id, sender_id, recipient_id, content, created_at, read_at
                 FROM messages WHERE order_id = $1 AND created_at > $2 ORDER BY created_at ASC`
		args = append(args, since)
	}

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}
	defer rows.Close()

	type message struct {
		ID          string  `json:"id"`
		SenderID    string  `json:"sender_id"`
		RecipientID string  `json:"recipient_id"`
		Content     string  `json:"content"`
		CreatedAt   string  `json:"created_at"`
		ReadAt      *string `json:"read_at"`
	}

	msgs := []message{}
	for rows.Next() {
		var m message
		var createdAt time.Time
		var readAt *time.Time
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &createdAt, &readAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse message"})
		}
		m.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if readAt != nil {
			ts := readAt.UTC().Format(time.RFC3339)
			m.ReadAt = &ts
		}
		msgs = append(msgs, m)
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// UnreadCount reports how many messages in the thread are addressed to
// the session user and still unread.
func UnreadCount(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	ctx := context.Background()
	buyerID, sellerID, err := orderParties(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}
	if d := authz.IsOrderParticipant(sess, buyerID, sellerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	var count int64
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE order_id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		orderID, sess.UserID,
	).Scan(&count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute unread count"})
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

// MarkMessageRead stamps a read receipt. Only the recipient may mark a
// message read.
func MarkMessageRead(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	msgID := c.Param("message_id")
	if orderID == "" || msgID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order or message id"})
	}

	ctx := context.Background()
	var recipientID string
	err := db.Conn.QueryRow(ctx,
		`SELECT recipient_id FROM messages WHERE id = $1 AND order_id = $2`, msgID, orderID,
	).Scan(&recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch message"})
	}
	if recipientID != sess.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the recipient"})
	}

	var readAt time.Time
	err = db.Conn.QueryRow(ctx,
		`UPDATE messages SET read_at = COALESCE(read_at, NOW())
         WHERE id = $1 AND recipient_id = $2 RETURNING read_at`, msgID, sess.UserID,
	).Scan(&readAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark read"})
	}

	stamp := readAt.UTC().Format(time.RFC3339)
	PublishMessageRead(orderID, echo.Map{
		"message_id": msgID,
		"order_id":   orderID,
		"user_id":    sess.UserID,
		"read_at":    stamp,
	})

	return c.JSON(http.StatusOK, echo.Map{"message_id": msgID, "read_at": stamp})
}
