package marketplace

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/db"
)

// UpsertProfile creates or updates the current user's seller profile.
func UpsertProfile(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Bio            string   `json:"bio"`
		Instrument     string   `json:"instrument"`
		PricePerMinute *int64   `json:"price_per_minute"`
		IsAvailable    *bool    `json:"is_available"`
		ProfileImage   string   `json:"profile_image"`
		AudioSamples   []string `json:"audio_samples"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PricePerMinute != nil && *req.PricePerMinute <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_per_minute must be positive"})
	}
	if req.AudioSamples == nil {
		req.AudioSamples = []string{}
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	var p Profile
	err := db.Conn.QueryRow(context.Background(), `
        INSERT INTO profiles (id, user_id, bio, instrument, price_per_minute, is_available, profile_image, audio_samples)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id) DO UPDATE SET
            bio = EXCLUDED.bio,
            instrument = EXCLUDED.instrument,
            price_per_minute = EXCLUDED.price_per_minute,
            is_available = EXCLUDED.is_available,
            profile_image = EXCLUDED.profile_image,
            audio_samples = EXCLUDED.audio_samples,
            updated_at = NOW()
        RETURNING id, user_id, bio, instrument, price_per_minute, is_available, profile_image, audio_samples, created_at, updated_at
    `, uuid.New().String(), userID, req.Bio, req.Instrument, req.PricePerMinute, available, req.ProfileImage, req.AudioSamples).Scan(
		&p.ID, &p.UserID, &p.Bio, &p.Instrument, &p.PricePerMinute, &p.IsAvailable, &p.ProfileImage, &p.AudioSamples, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save profile"})
	}

	return c.JSON(http.StatusOK, p)
}

// SearchProfiles lists available seller profiles, optionally filtered by
// instrument, newest first. Public discovery endpoint.
func SearchProfiles(c echo.Context) error {
	instrument := c.QueryParam("instrument")

	query := `
        SELECT p.id, p.user_id, p.bio, p.instrument, p.price_per_minute, p.is_available,
               p.profile_image, p.audio_samples, p.created_at, p.updated_at, u.name
        FROM profiles p
        JOIN users u ON u.id = p.user_id
        WHERE p.is_available = TRUE`
	var args []any
	if instrument != "" {
		query += ` AND p.instrument ILIKE $1`
		args = append(args, "%"+instrument+"%")
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch profiles"})
	}
	defer rows.Close()

	var profiles []echo.Map
	for rows.Next() {
		var p Profile
		var name string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Bio, &p.Instrument, &p.PricePerMinute, &p.IsAvailable,
			&p.ProfileImage, &p.AudioSamples, &p.CreatedAt, &p.UpdatedAt, &name); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse profile"})
		}
		profiles = append(profiles, echo.Map{"profile": p, "seller_name": name})
	}

	return c.JSON(http.StatusOK, echo.Map{"profiles": profiles})
}

// GetProfile returns a single seller profile with its active services.
func GetProfile(c echo.Context) error {
	sellerID := c.Param("id")
	if sellerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing seller id"})
	}

	var p Profile
	err := db.Conn.QueryRow(context.Background(), `
        SELECT id, user_id, bio, instrument, price_per_minute, is_available, profile_image, audio_samples, created_at, updated_at
        FROM profiles WHERE user_id = $1
    `, sellerID).Scan(&p.ID, &p.UserID, &p.Bio, &p.Instrument, &p.PricePerMinute, &p.IsAvailable,
		&p.ProfileImage, &p.AudioSamples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id, profile_id, title, description, included, excluded, base_price,
               credit_required, credit_instructions, is_active, created_at
        FROM services WHERE profile_id = $1 AND is_active = TRUE ORDER BY created_at DESC
    `, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch services"})
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Title, &s.Description, &s.Included, &s.Excluded,
			&s.BasePrice, &s.CreditRequired, &s.CreditInstructions, &s.IsActive, &s.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse service"})
		}
		services = append(services, s)
	}

	return c.JSON(http.StatusOK, echo.Map{"profile": p, "services": services})
}
