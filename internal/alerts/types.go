package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail    = "email:welcome"
	TaskOrderPaid       = "email:order_paid"
	TaskOrderCompleted  = "email:order_completed"
	TaskOrderCancelled  = "email:order_cancelled"
	TaskMessageNew      = "email:message_new"
	TaskPayoutRequested = "email:payout_requested"
)

// EmailEnvelope is the common envelope for email-like notifications.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WelcomeEmailPayload greets a new user.
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// OrderEventPayload covers order lifecycle notifications (paid, completed,
// cancelled). Amount is in cents.
type OrderEventPayload struct {
	OrderID  string        `json:"order_id"`
	BuyerID  string        `json:"buyer_id"`
	SellerID string        `json:"seller_id"`
	Email    string        `json:"email"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// MessagePayload notifies the other participant of a new order message.
type MessagePayload struct {
	OrderID     string        `json:"order_id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Email       string        `json:"email"`
	Preview     string        `json:"preview"`
	Envelope    EmailEnvelope `json:"envelope"`
	SentAt      time.Time     `json:"sent_at"`
}

// PayoutPayload confirms a payout request to the seller. Amount is the net
// amount in cents.
type PayoutPayload struct {
	PayoutID   string        `json:"payout_id"`
	SellerID   string        `json:"seller_id"`
	Email      string        `json:"email"`
	Amount     int64         `json:"amount"`
	OrderCount int           `json:"order_count"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}
