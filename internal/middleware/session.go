package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/authz"
)

// SessionFrom reconstructs the caller's session from the context values set
// by JWTMiddleware. A zero session means the request was not authenticated.
func SessionFrom(c echo.Context) authz.Session {
	userID, _ := c.Get("user_id").(string)
	canBuy, _ := c.Get("can_buy").(bool)
	canSell, _ := c.Get("can_sell").(bool)
	return authz.Session{UserID: userID, CanBuy: canBuy, CanSell: canSell}
}
