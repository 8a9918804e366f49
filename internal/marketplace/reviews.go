package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/order"
)

// CreateReview lets the buyer rate a completed order. One review per order.
func CreateReview(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}

	ctx := context.Background()

	var buyerID, sellerID string
	var status string
	err := db.Conn.QueryRow(ctx,
		`SELECT buyer_id, seller_id, status FROM orders WHERE id = $1`, orderID,
	).Scan(&buyerID, &sellerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}

	if userID != buyerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the buyer can review an order"})
	}
	if order.Status(status) != order.StatusCompleted {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order is not completed"})
	}

	var r Review
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO reviews (id, order_id, reviewer_id, seller_id, rating, comment)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, order_id, reviewer_id, seller_id, rating, comment, created_at
    `, uuid.New().String(), orderID, userID, sellerID, req.Rating, req.Comment).Scan(
		&r.ID, &r.OrderID, &r.ReviewerID, &r.SellerID, &r.Rating, &r.Comment, &r.CreatedAt,
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order already reviewed"})
	}

	return c.JSON(http.StatusOK, r)
}

// GetSellerReviews lists reviews for a seller, newest first. Public.
func GetSellerReviews(c echo.Context) error {
	sellerID := c.Param("id")
	if sellerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing seller id"})
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id, order_id, reviewer_id, seller_id, rating, comment, created_at
        FROM reviews WHERE seller_id = $1 ORDER BY created_at DESC
    `, sellerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reviews"})
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ReviewerID, &r.SellerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse review"})
		}
		reviews = append(reviews, r)
	}

	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

// GetOrderReview returns the review attached to an order, if any.
// Participants only.
func GetOrderReview(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	orderID := c.Param("id")
	ctx := context.Background()

	var buyerID, sellerID string
	err := db.Conn.QueryRow(ctx,
		`SELECT buyer_id, seller_id FROM orders WHERE id = $1`, orderID,
	).Scan(&buyerID, &sellerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}
	if userID != buyerID && userID != sellerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	var r Review
	err = db.Conn.QueryRow(ctx, `
        SELECT id, order_id, reviewer_id, seller_id, rating, comment, created_at
        FROM reviews WHERE order_id = $1
    `, orderID).Scan(&r.ID, &r.OrderID, &r.ReviewerID, &r.SellerID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no review for this order"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch review"})
	}

	return c.JSON(http.StatusOK, r)
}
