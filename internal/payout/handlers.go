package payout

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/metrics"
	"github.com/tunehire/tunehire/internal/middleware"
	"github.com/tunehire/tunehire/internal/order"
	"github.com/tunehire/tunehire/internal/pricing"
	"github.com/tunehire/tunehire/internal/utils"
)

// Request batches every eligible completed order into one payout. The
// whole selection runs in a transaction with the candidate orders
// locked, and payout_orders has a primary key on order_id, so two
// concurrent requests can never claim the same order twice.
func Request(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if d := authz.CanSell(sess); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "seller capability required"})
	}

	ctx := context.Background()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
        SELECT o.id, o.total_price
        FROM orders o
        LEFT JOIN payout_orders po ON po.order_id = o.id
        WHERE o.seller_id = $1 AND o.status = $2 AND po.order_id IS NULL
        ORDER BY o.created_at
        FOR UPDATE OF o
    `, sess.UserID, order.StatusCompleted)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to select orders"})
	}

	var orderIDs []string
	var gross int64
	for rows.Next() {
		var id string
		var total int64
		if err := rows.Scan(&id, &total); err != nil {
			rows.Close()
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse order"})
		}
		orderIDs = append(orderIDs, id)
		gross += total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to select orders"})
	}

	if len(orderIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to pay out"})
	}

	net := pricing.PayoutNet(gross)

	payoutID := uuid.New().String()
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
        INSERT INTO payouts (id, seller_id, amount, status)
        VALUES ($1, $2, $3, $4) RETURNING created_at
    `, payoutID, sess.UserID, net, StatusPending).Scan(&createdAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payout"})
	}

	for _, orderID := range orderIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO payout_orders (order_id, payout_id) VALUES ($1, $2)`,
			orderID, payoutID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to claim orders"})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit payout"})
	}

	metrics.PayoutsRequestedTotal.Inc()
	utils.Logger().Info("payout requested",
		zap.String("payout_id", payoutID), zap.String("seller_id", sess.UserID),
		zap.Int64("gross", gross), zap.Int64("net", net), zap.Int("orders", len(orderIDs)))

	var sellerEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, sess.UserID).Scan(&sellerEmail)
	if sellerEmail != "" {
		_ = alerts.EnqueuePayoutRequested(payoutID, sess.UserID, sellerEmail, net, len(orderIDs))
	}
	ref := payoutID
	_ = alerts.CreateNotification(sess.UserID, "payout:requested", "Payout requested", "", &ref)

	return c.JSON(http.StatusOK, Payout{
		ID:        payoutID,
		SellerID:  sess.UserID,
		Amount:    net,
		Status:    StatusPending,
		OrderIDs:  orderIDs,
		CreatedAt: createdAt,
	})
}

// List returns the seller's payout history, newest first, each with the
// order ids it covers.
func List(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	rows, err := db.Conn.Query(ctx, `
        SELECT p.id, p.seller_id, p.amount, p.status, p.created_at,
               COALESCE(array_agg(po.order_id) FILTER (WHERE po.order_id IS NOT NULL), '{}')
        FROM payouts p
        LEFT JOIN payout_orders po ON po.payout_id = p.id
        WHERE p.seller_id = $1
        GROUP BY p.id
        ORDER BY p.created_at DESC
    `, sess.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payouts"})
	}
	defer rows.Close()

	payouts := []Payout{}
	for rows.Next() {
		var p Payout
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Amount, &p.Status, &p.CreatedAt, &p.OrderIDs); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse payout"})
		}
		payouts = append(payouts, p)
	}

	return c.JSON(http.StatusOK, echo.Map{"payouts": payouts})
}

// GetStats returns the seller's earnings aggregate.
func GetStats(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()

	completed, err := completedOrders(ctx, sess.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch orders"})
	}
	payouts, err := sellerPayouts(ctx, sess.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payouts"})
	}

	return c.JSON(http.StatusOK, ComputeStats(completed, payouts))
}

func completedOrders(ctx context.Context, sellerID string) ([]order.Order, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id, total_price FROM orders WHERE seller_id = $1 AND status = $2`,
		sellerID, order.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o := order.Order{Status: order.StatusCompleted}
		if err := rows.Scan(&o.ID, &o.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func sellerPayouts(ctx context.Context, sellerID string) ([]Payout, error) {
	rows, err := db.Conn.Query(ctx, `
        SELECT p.id, p.amount, p.status,
               COALESCE(array_agg(po.order_id) FILTER (WHERE po.order_id IS NOT NULL), '{}')
        FROM payouts p
        LEFT JOIN payout_orders po ON po.payout_id = p.id
        WHERE p.seller_id = $1
        GROUP BY p.id
    `, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payout
	for rows.Next() {
		p := Payout{SellerID: sellerID}
		if err := rows.Scan(&p.ID, &p.Amount, &p.Status, &p.OrderIDs); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
