package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tunehire/tunehire/internal/utils"
)

// JWTMiddleware authenticates the request and puts the session's user id
// and capability flags on the echo context.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid Authorization format"})
		}

		claims, err := utils.ParseToken(authHeader[len(prefix):])
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token claims"})
		}
		canBuy, _ := claims["can_buy"].(bool)
		canSell, _ := claims["can_sell"].(bool)

		c.Set("user_id", userID)
		c.Set("can_buy", canBuy)
		c.Set("can_sell", canSell)
		return next(c)
	}
}
