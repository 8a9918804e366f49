package marketplace

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/middleware"
)

// CreateService lists a new offering under the seller's profile. The
// profile is created lazily if the seller never saved one.
func CreateService(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.CanSell(sess); !d.Allowed {
		if d.Reason == authz.ReasonUnauthenticated {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only sellers can create services"})
	}

	var req struct {
		Title              string   `json:"title"`
		Description        string   `json:"description"`
		Included           []string `json:"included"`
		Excluded           []string `json:"excluded"`
		BasePrice          int64    `json:"base_price"`
		CreditRequired     string   `json:"credit_required"`
		CreditInstructions string   `json:"credit_instructions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" || req.BasePrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and base price are required"})
	}
	if req.Included == nil {
		req.Included = []string{}
	}
	if req.Excluded == nil {
		req.Excluded = []string{}
	}

	ctx := context.Background()

	// Get or create the seller's profile.
	var profileID string
	err := db.Conn.QueryRow(ctx, `SELECT id FROM profiles WHERE user_id = $1`, sess.UserID).Scan(&profileID)
	if err != nil {
		profileID = uuid.New().String()
		_, err = db.Conn.Exec(ctx, `INSERT INTO profiles (id, user_id) VALUES ($1, $2)`, profileID, sess.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create profile"})
		}
	}

	var s Service
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO services (id, profile_id, title, description, included, excluded, base_price, credit_required, credit_instructions)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, profile_id, title, description, included, excluded, base_price, credit_required, credit_instructions, is_active, created_at
    `, uuid.New().String(), profileID, req.Title, req.Description, req.Included, req.Excluded,
		req.BasePrice, req.CreditRequired, req.CreditInstructions).Scan(
		&s.ID, &s.ProfileID, &s.Title, &s.Description, &s.Included, &s.Excluded,
		&s.BasePrice, &s.CreditRequired, &s.CreditInstructions, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create service"})
	}

	return c.JSON(http.StatusOK, s)
}

// GetUserServices lists the current seller's own services.
func GetUserServices(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !sess.CanSell {
		return c.JSON(http.StatusOK, echo.Map{"services": []Service{}})
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT s.id, s.profile_id, s.title, s.description, s.included, s.excluded, s.base_price,
               s.credit_required, s.credit_instructions, s.is_active, s.created_at
        FROM services s
        JOIN profiles p ON p.id = s.profile_id
        WHERE p.user_id = $1
        ORDER BY s.created_at DESC
    `, sess.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch services"})
	}
	defer rows.Close()

	services := []Service{}
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Title, &s.Description, &s.Included, &s.Excluded,
			&s.BasePrice, &s.CreditRequired, &s.CreditInstructions, &s.IsActive, &s.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse service"})
		}
		services = append(services, s)
	}

	return c.JSON(http.StatusOK, echo.Map{"services": services})
}

// serviceOwner returns the user id owning the given service, or "" when the
// service does not exist.
func serviceOwner(ctx context.Context, serviceID string) (string, error) {
	var ownerID string
	err := db.Conn.QueryRow(ctx, `
        SELECT p.user_id FROM services s JOIN profiles p ON p.id = s.profile_id WHERE s.id = $1
    `, serviceID).Scan(&ownerID)
	return ownerID, err
}

// UpdateService edits an offering. Only the owning seller may mutate it.
func UpdateService(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.CanSell(sess); !d.Allowed {
		if d.Reason == authz.ReasonUnauthenticated {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only sellers can update services"})
	}

	serviceID := c.Param("id")
	ctx := context.Background()

	ownerID, err := serviceOwner(ctx, serviceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}
	if d := authz.IsServiceOwner(sess, ownerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your service"})
	}

	var req struct {
		Title              *string   `json:"title"`
		Description        *string   `json:"description"`
		Included           *[]string `json:"included"`
		Excluded           *[]string `json:"excluded"`
		BasePrice          *int64    `json:"base_price"`
		CreditRequired     *string   `json:"credit_required"`
		CreditInstructions *string   `json:"credit_instructions"`
		IsActive           *bool     `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.BasePrice != nil && *req.BasePrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "base price must be positive"})
	}

	var s Service
	err = db.Conn.QueryRow(ctx, `
        UPDATE services SET
            title = COALESCE($1, title),
            description = COALESCE($2, description),
            included = COALESCE($3, included),
            excluded = COALESCE($4, excluded),
            base_price = COALESCE($5, base_price),
            credit_required = COALESCE($6, credit_required),
            credit_instructions = COALESCE($7, credit_instructions),
            is_active = COALESCE($8, is_active)
        WHERE id = $9
        RETURNING id, profile_id, title, description, included, excluded, base_price, credit_required, credit_instructions, is_active, created_at
    `, req.Title, req.Description, req.Included, req.Excluded, req.BasePrice,
		req.CreditRequired, req.CreditInstructions, req.IsActive, serviceID).Scan(
		&s.ID, &s.ProfileID, &s.Title, &s.Description, &s.Included, &s.Excluded,
		&s.BasePrice, &s.CreditRequired, &s.CreditInstructions, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update service"})
	}

	return c.JSON(http.StatusOK, s)
}

// DeleteService removes an offering. Only the owning seller may delete it.
func DeleteService(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.CanSell(sess); !d.Allowed {
		if d.Reason == authz.ReasonUnauthenticated {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only sellers can delete services"})
	}

	serviceID := c.Param("id")
	ctx := context.Background()

	ownerID, err := serviceOwner(ctx, serviceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
	}
	if d := authz.IsServiceOwner(sess, ownerID); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your service"})
	}

	if _, err := db.Conn.Exec(ctx, `DELETE FROM services WHERE id = $1`, serviceID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete service"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
