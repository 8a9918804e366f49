package order

import "time"

// Status is the closed set of order lifecycle states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// UsageType is the closed set of declared uses for a commissioned recording.
type UsageType string

const (
	UsagePersonal        UsageType = "PERSONAL"
	UsageCommercial      UsageType = "COMMERCIAL"
	UsageEducational     UsageType = "EDUCATIONAL"
	UsageBroadcast       UsageType = "BROADCAST"
	UsageStreaming       UsageType = "STREAMING"
	UsageLivePerformance UsageType = "LIVE_PERFORMANCE"
	UsageOther           UsageType = "OTHER"
)

// Order is the central ledger entity: one commissioned recording from a
// seller to a buyer. TotalPrice is a snapshot of lengthMinutes times the
// seller's per-minute rate at creation time; it is never recomputed.
// All money fields are integer cents.
type Order struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	SellerID      string    `json:"seller_id"`
	Title         string    `json:"title"`
	Tempo         string    `json:"tempo,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	LengthMinutes int       `json:"length_minutes"`
	TotalPrice    int64     `json:"total_price"`
	SheetMusicURL string    `json:"sheet_music_url,omitempty"`
	AudioFileURL  string    `json:"audio_file_url,omitempty"`
	IntendedUse   string    `json:"intended_use,omitempty"`
	UsageType     UsageType `json:"usage_type"`
	Status        Status    `json:"status"`

	// Payment provider linkage, populated as payment progresses.
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	TransferGroup   string `json:"transfer_group,omitempty"`
	TransferID      string `json:"transfer_id,omitempty"`
	PlatformFee     int64  `json:"platform_fee,omitempty"`
	SellerAmount    int64  `json:"seller_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseStatus validates a status string from an API request.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// ParseUsageType validates a usage type string from an API request.
func ParseUsageType(s string) (UsageType, bool) {
	switch UsageType(s) {
	case UsagePersonal, UsageCommercial, UsageEducational, UsageBroadcast,
		UsageStreaming, UsageLivePerformance, UsageOther:
		return UsageType(s), true
	}
	return "", false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanSellerSet reports whether the order's seller may move the order from
// its current status to target. Sellers advance work (IN_PROGRESS,
// COMPLETED) or cancel before completion.
func CanSellerSet(current, target Status) bool {
	switch target {
	case StatusInProgress:
		return current == StatusAccepted
	case StatusCompleted:
		return current == StatusAccepted || current == StatusInProgress
	case StatusCancelled:
		return !current.Terminal()
	}
	return false
}

// ApplyPaymentSucceeded is the payment-succeeded transition. It is
// idempotent: an order already ACCEPTED (or further along) is left alone so
// duplicate webhook deliveries never rewind progress.
func ApplyPaymentSucceeded(current Status) (Status, bool) {
	switch current {
	case StatusPending:
		return StatusAccepted, true
	default:
		return current, false
	}
}

// ApplyPaymentFailed cancels an order whose payment failed. Terminal orders
// are left alone.
func ApplyPaymentFailed(current Status) (Status, bool) {
	if current.Terminal() {
		return current, false
	}
	return StatusCancelled, true
}
