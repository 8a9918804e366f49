package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireSeller ensures the session holds the selling capability.
// Usage: route(..., RequireSeller)
func RequireSeller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		canSell, ok := c.Get("can_sell").(bool)
		if !ok || !canSell {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "seller capability required",
			})
		}
		return next(c)
	}
}

// RequireBuyer ensures the session holds the buying capability.
func RequireBuyer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		canBuy, ok := c.Get("can_buy").(bool)
		if !ok || !canBuy {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "buyer capability required",
			})
		}
		return next(c)
	}
}
