package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/utils"
)

type UpdateCapabilitiesRequest struct {
	CanSell *bool `json:"can_sell"`
}

// UpdateCapabilities toggles the selling capability for the current user.
// A fresh token is returned so route guards pick up the new flag without
// waiting for the old one to expire.
func UpdateCapabilities(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(UpdateCapabilitiesRequest)
	if err := c.Bind(req); err != nil || req.CanSell == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "can_sell must be a boolean"})
	}

	var (
		name    string
		email   string
		canBuy  bool
		canSell bool
	)
	err := db.Conn.QueryRow(context.Background(), `
        UPDATE users SET can_sell = $1 WHERE id = $2
        RETURNING name, email, can_buy, can_sell
    `, *req.CanSell, userID).Scan(&name, &email, &canBuy, &canSell)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update capabilities"})
	}

	signed, err := utils.MintToken(userID, canBuy, canSell)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"id":       userID,
			"name":     name,
			"email":    email,
			"can_buy":  canBuy,
			"can_sell": canSell,
		},
		"token": signed,
	})
}
