package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/db"
)

// Me returns the currently authenticated user.
func Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var (
		name               string
		email              string
		canBuy             bool
		canSell            bool
		stripeAccountID    *string
		onboardingComplete bool
	)
	err := db.Conn.QueryRow(context.Background(), `
        SELECT name, email, can_buy, can_sell, stripe_account_id, stripe_onboarding_complete
        FROM users WHERE id = $1
    `, userID).Scan(&name, &email, &canBuy, &canSell, &stripeAccountID, &onboardingComplete)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	resp := echo.Map{
		"id":                  userID,
		"name":                name,
		"email":               email,
		"can_buy":             canBuy,
		"can_sell":            canSell,
		"onboarding_complete": onboardingComplete,
	}
	if stripeAccountID != nil {
		resp["stripe_account_id"] = *stripeAccountID
	}
	return c.JSON(http.StatusOK, resp)
}
