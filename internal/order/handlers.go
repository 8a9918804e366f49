package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/messaging"
	"github.com/tunehire/tunehire/internal/metrics"
	"github.com/tunehire/tunehire/internal/middleware"
	"github.com/tunehire/tunehire/internal/pricing"
	"github.com/tunehire/tunehire/internal/utils"
)

const orderColumns = `id, buyer_id, seller_id, title, tempo, notes, length_minutes, total_price,
       sheet_music_url, audio_file_url, intended_use, usage_type, status,
       payment_intent_id, transfer_group, transfer_id, platform_fee, seller_amount,
       created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.Title, &o.Tempo, &o.Notes,
		&o.LengthMinutes, &o.TotalPrice, &o.SheetMusicURL, &o.AudioFileURL,
		&o.IntendedUse, &o.UsageType, &o.Status,
		&o.PaymentIntentID, &o.TransferGroup, &o.TransferID, &o.PlatformFee, &o.SellerAmount,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// FetchByID loads one order. Shared by the payments handlers.
func FetchByID(ctx context.Context, id string) (Order, error) {
	return scanOrder(db.Conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// FetchByIntentID loads the order linked to a payment intent.
func FetchByIntentID(ctx context.Context, intentID string) (Order, error) {
	return scanOrder(db.Conn.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, intentID))
}

type CreateRequest struct {
	SellerID      string `json:"seller_id"`
	Title         string `json:"title"`
	Tempo         string `json:"tempo"`
	Notes         string `json:"notes"`
	LengthMinutes int    `json:"length_minutes"`
	SheetMusicURL string `json:"sheet_music_url"`
	IntendedUse   string `json:"intended_use"`
	UsageType     string `json:"usage_type"`
}

// Create places a new order. The total price is snapshotted from the
// seller's current per-minute rate; later rate changes never touch it.
func Create(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.SellerID == "" || req.Title == "" || req.LengthMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seller_id, title and a positive length_minutes are required"})
	}
	usage, ok := ParseUsageType(req.UsageType)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid usage_type"})
	}
	if req.SellerID == sess.UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot order from yourself"})
	}

	ctx := context.Background()

	var pricePerMinute *int64
	err := db.Conn.QueryRow(ctx,
		`SELECT price_per_minute FROM profiles WHERE user_id = $1`, req.SellerID,
	).Scan(&pricePerMinute)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seller profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch seller profile"})
	}
	if pricePerMinute == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seller has not set a per-minute rate"})
	}

	totalPrice := pricing.OrderTotal(*pricePerMinute, req.LengthMinutes)

	o, err := scanOrder(db.Conn.QueryRow(ctx, `
        INSERT INTO orders (id, buyer_id, seller_id, title, tempo, notes, length_minutes, total_price,
                            sheet_music_url, intended_use, usage_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+orderColumns+`
    `, uuid.New().String(), sess.UserID, req.SellerID, req.Title, req.Tempo, req.Notes,
		req.LengthMinutes, totalPrice, req.SheetMusicURL, req.IntendedUse, usage))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}

	metrics.OrdersCreatedTotal.Inc()

	// In-app heads-up for the seller (best-effort).
	ref := o.ID
	_ = alerts.CreateNotification(o.SellerID, "order:new", "New order request", o.Title, &ref)

	return c.JSON(http.StatusOK, o)
}

// participant is the id/name/email triple embedded in order reads.
type participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func fetchParticipant(ctx context.Context, userID string) participant {
	p := participant{ID: userID}
	_ = db.Conn.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, userID).Scan(&p.Name, &p.Email)
	return p
}

// Get returns one order with its participants and message thread.
// Participants only; everyone else learns the order exists but not its
// contents.
func Get(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	o, err := FetchByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}

	if d := authz.IsOrderParticipant(sess, o.BuyerID, o.SellerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	rows, err := db.Conn.Query(ctx, `
        SELECT m.id, m.sender_id, u.name, m.content, m.created_at
        FROM messages m JOIN users u ON u.id = m.sender_id
        WHERE m.order_id = $1 ORDER BY m.created_at ASC
    `, o.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch messages"})
	}
	defer rows.Close()

	messages := []echo.Map{}
	for rows.Next() {
		var id, senderID, senderName, content string
		var createdAt time.Time
		if err := rows.Scan(&id, &senderID, &senderName, &content, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse message"})
		}
		messages = append(messages, echo.Map{
			"id": id, "sender_id": senderID, "sender_name": senderName,
			"content": content, "created_at": createdAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order":    o,
		"buyer":    fetchParticipant(ctx, o.BuyerID),
		"seller":   fetchParticipant(ctx, o.SellerID),
		"messages": messages,
	})
}

// List returns every order the session user participates in, as buyer or
// seller, newest first.
func List(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT `+orderColumns+` FROM orders
        WHERE buyer_id = $1 OR seller_id = $1
        ORDER BY created_at DESC
    `, sess.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch orders"})
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse order"})
		}
		orders = append(orders, o)
	}

	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

type UpdateRequest struct {
	Status       string `json:"status"`
	AudioFileURL string `json:"audio_file_url"`
}

// Update lets the order's seller advance the status and/or attach the
// delivered recording.
func Update(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Status == "" && req.AudioFileURL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx := context.Background()
	o, err := FetchByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}

	if d := authz.IsOrderSeller(sess, o.SellerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the seller can update this order"})
	}

	newStatus := o.Status
	if req.Status != "" {
		target, ok := ParseStatus(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		if !CanSellerSet(o.Status, target) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status transition"})
		}
		newStatus = target
	}

	audioURL := o.AudioFileURL
	if req.AudioFileURL != "" {
		audioURL = req.AudioFileURL
	}

	updated, err := scanOrder(db.Conn.QueryRow(ctx, `
        UPDATE orders SET status = $1, audio_file_url = $2, updated_at = NOW()
        WHERE id = $3
        RETURNING `+orderColumns+`
    `, newStatus, audioURL, o.ID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
	}

	if newStatus != o.Status {
		messaging.PublishOrderStatus(updated.ID, string(newStatus))
	}

	// Notify the buyer of terminal moves (best-effort).
	if newStatus != o.Status && (newStatus == StatusCompleted || newStatus == StatusCancelled) {
		var buyerEmail string
		_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, updated.BuyerID).Scan(&buyerEmail)
		ref := updated.ID
		if newStatus == StatusCompleted {
			_ = alerts.CreateNotification(updated.BuyerID, "order:completed", "Your recording is ready", updated.Title, &ref)
			if buyerEmail != "" {
				if err := alerts.EnqueueOrderCompleted(updated.ID, updated.BuyerID, updated.SellerID, buyerEmail, updated.TotalPrice); err != nil {
					utils.Logger().Warn("failed to enqueue completion email", zap.String("order_id", updated.ID), zap.Error(err))
				}
			}
		} else {
			_ = alerts.CreateNotification(updated.BuyerID, "order:cancelled", "Your order was cancelled", updated.Title, &ref)
			if buyerEmail != "" {
				_ = alerts.EnqueueOrderCancelled(updated.ID, updated.BuyerID, updated.SellerID, buyerEmail, updated.TotalPrice)
			}
		}
	}

	return c.JSON(http.StatusOK, updated)
}
