package alerts

import (
	"context"

	"github.com/google/uuid"

	"github.com/tunehire/tunehire/internal/db"
)

// CreateNotification stores an in-app notification. Callers treat failures
// as best-effort; notifications never block the triggering request.
func CreateNotification(userID, ntype, title, body string, reference *string) error {
	_, err := db.Conn.Exec(context.Background(), `
        INSERT INTO notifications (id, user_id, type, title, body, reference)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, uuid.New().String(), userID, ntype, title, body, reference)
	return err
}
