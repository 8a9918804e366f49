// Package payout batches a seller's completed, not-yet-claimed orders into
// payout requests and derives the seller's earnings figures. The selection
// and accounting logic is kept pure so the handlers only move rows.
package payout

import (
	"time"

	"github.com/tunehire/tunehire/internal/order"
	"github.com/tunehire/tunehire/internal/pricing"
)

// Status is the closed set of payout states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusFailed     Status = "FAILED"
)

// Payout is a batched withdrawal covering a set of completed orders.
// Amount is the net value in cents after the payout fee. Each order id
// belongs to at most one payout, enforced by the payout_orders primary key.
type Payout struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Amount    int64     `json:"amount"`
	Status    Status    `json:"status"`
	OrderIDs  []string  `json:"order_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is the read-only earnings aggregate for a seller, all in cents.
type Stats struct {
	TotalEarnings        int64 `json:"total_earnings"`
	PlatformFees         int64 `json:"platform_fees"`
	NetEarnings          int64 `json:"net_earnings"`
	TotalPaidOut         int64 `json:"total_paid_out"`
	PendingPayouts       int64 `json:"pending_payouts"`
	AvailableForPayout   int64 `json:"available_for_payout"`
	CompletedOrdersCount int   `json:"completed_orders_count"`
	UnpaidOrdersCount    int   `json:"unpaid_orders_count"`
}

// ClaimedOrderIDs returns the union of order ids across the given payouts.
func ClaimedOrderIDs(payouts []Payout) map[string]bool {
	claimed := make(map[string]bool)
	for _, p := range payouts {
		for _, id := range p.OrderIDs {
			claimed[id] = true
		}
	}
	return claimed
}

// Eligible filters a seller's COMPLETED orders down to those not yet claimed
// by any existing payout.
func Eligible(completed []order.Order, payouts []Payout) []order.Order {
	claimed := ClaimedOrderIDs(payouts)
	var out []order.Order
	for _, o := range completed {
		if o.Status != order.StatusCompleted {
			continue
		}
		if !claimed[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

// SumTotal adds up the snapshot prices of the given orders.
func SumTotal(orders []order.Order) int64 {
	var sum int64
	for _, o := range orders {
		sum += o.TotalPrice
	}
	return sum
}

// ComputeStats derives the earnings aggregate from a seller's completed
// orders and payout history. AvailableForPayout uses the same eligibility
// set as a payout request would, so the two never disagree.
func ComputeStats(completed []order.Order, payouts []Payout) Stats {
	totalEarnings := SumTotal(completed)
	fees, net := pricing.SplitFee(totalEarnings, pricing.PayoutFeeBps)

	var paidOut, pending int64
	for _, p := range payouts {
		switch p.Status {
		case StatusPaid:
			paidOut += p.Amount
		case StatusPending, StatusProcessing:
			pending += p.Amount
		}
	}

	unpaid := Eligible(completed, payouts)

	return Stats{
		TotalEarnings:        totalEarnings,
		PlatformFees:         fees,
		NetEarnings:          net,
		TotalPaidOut:         paidOut,
		PendingPayouts:       pending,
		AvailableForPayout:   pricing.PayoutNet(SumTotal(unpaid)),
		CompletedOrdersCount: len(completed),
		UnpaidOrdersCount:    len(unpaid),
	}
}
