package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/utils"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// Signup creates a user. Everyone can buy from day one; selling is a
// capability the user enables later.
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and a password of at least 6 characters are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	userID := uuid.New().String()
	_, err = db.Conn.Exec(context.Background(), `
        INSERT INTO users (id, name, email, password, can_buy, can_sell)
        VALUES ($1, $2, $3, $4, TRUE, FALSE)
    `, userID, req.Name, req.Email, string(hashed))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	signed, err := utils.MintToken(userID, true, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	// Welcome email is best-effort.
	_ = alerts.EnqueueWelcomeEmail(userID, req.Email, req.Name)

	return c.JSON(http.StatusOK, SignupResponse{Token: signed})
}
