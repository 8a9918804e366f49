package marketplace

import "time"

// Profile is a seller's public-facing page: bio, instrument, per-minute
// rate and media samples. One per user, created lazily on first service
// creation or explicit save. PricePerMinute is in cents and nil until the
// seller sets a rate; orders cannot be placed against a profile without one.
type Profile struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Bio            string    `json:"bio"`
	Instrument     string    `json:"instrument"`
	PricePerMinute *int64    `json:"price_per_minute"`
	IsAvailable    bool      `json:"is_available"`
	ProfileImage   string    `json:"profile_image,omitempty"`
	AudioSamples   []string  `json:"audio_samples"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Service is a named, priced offering attached to a seller's profile.
// BasePrice is in cents.
type Service struct {
	ID                 string    `json:"id"`
	ProfileID          string    `json:"profile_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Included           []string  `json:"included"`
	Excluded           []string  `json:"excluded"`
	BasePrice          int64     `json:"base_price"`
	CreditRequired     string    `json:"credit_required,omitempty"`
	CreditInstructions string    `json:"credit_instructions,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// Review is a buyer's rating of a completed order, one per order.
type Review struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ReviewerID string    `json:"reviewer_id"`
	SellerID   string    `json:"seller_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
