package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tunehire/tunehire/internal/order"
)

func completedOrder(id string, price int64) order.Order {
	return order.Order{ID: id, SellerID: "seller", TotalPrice: price, Status: order.StatusCompleted}
}

func TestEligibleExcludesClaimedOrders(t *testing.T) {
	orders := []order.Order{
		completedOrder("o1", 3000),
		completedOrder("o2", 5000),
		completedOrder("o3", 1000),
	}
	payouts := []Payout{
		{ID: "p1", Status: StatusPaid, OrderIDs: []string{"o1"}},
	}

	eligible := Eligible(orders, payouts)
	assert.Len(t, eligible, 2)
	assert.Equal(t, "o2", eligible[0].ID)
	assert.Equal(t, "o3", eligible[1].ID)

	// Claiming the rest leaves nothing.
	payouts = append(payouts, Payout{ID: "p2", Status: StatusPending, OrderIDs: []string{"o2", "o3"}})
	assert.Empty(t, Eligible(orders, payouts))
}

func TestEligibleSkipsNonCompleted(t *testing.T) {
	orders := []order.Order{
		{ID: "o1", TotalPrice: 3000, Status: order.StatusCancelled},
		{ID: "o2", TotalPrice: 2000, Status: order.StatusInProgress},
		completedOrder("o3", 1000),
	}
	eligible := Eligible(orders, nil)
	assert.Len(t, eligible, 1)
	assert.Equal(t, "o3", eligible[0].ID)
}

func TestComputeStats(t *testing.T) {
	// $10/min x 3 min order completed, then paid out at 90%.
	orders := []order.Order{completedOrder("o1", 3000)}

	stats := ComputeStats(orders, nil)
	assert.Equal(t, int64(3000), stats.TotalEarnings)
	assert.Equal(t, int64(300), stats.PlatformFees)
	assert.Equal(t, int64(2700), stats.NetEarnings)
	assert.Equal(t, int64(2700), stats.AvailableForPayout)
	assert.Equal(t, 1, stats.CompletedOrdersCount)
	assert.Equal(t, 1, stats.UnpaidOrdersCount)
	assert.Zero(t, stats.TotalPaidOut)
	assert.Zero(t, stats.PendingPayouts)

	// After requesting the payout nothing is available, and the pending
	// bucket carries the net amount.
	payouts := []Payout{{ID: "p1", SellerID: "seller", Amount: 2700, Status: StatusPending, OrderIDs: []string{"o1"}}}
	stats = ComputeStats(orders, payouts)
	assert.Zero(t, stats.AvailableForPayout)
	assert.Zero(t, stats.UnpaidOrdersCount)
	assert.Equal(t, int64(2700), stats.PendingPayouts)
	assert.Zero(t, stats.TotalPaidOut)

	// Once the payout lands it moves to the paid bucket.
	payouts[0].Status = StatusPaid
	stats = ComputeStats(orders, payouts)
	assert.Equal(t, int64(2700), stats.TotalPaidOut)
	assert.Zero(t, stats.PendingPayouts)
}

func TestComputeStatsMatchesEligibility(t *testing.T) {
	orders := []order.Order{
		completedOrder("o1", 3000),
		completedOrder("o2", 1250),
		completedOrder("o3", 999),
	}
	payouts := []Payout{{ID: "p1", Status: StatusProcessing, OrderIDs: []string{"o2"}}}

	eligible := Eligible(orders, payouts)
	stats := ComputeStats(orders, payouts)

	var sum int64
	for _, o := range eligible {
		sum += o.TotalPrice
	}
	fee := (sum*1000 + 5000) / 10000
	assert.Equal(t, sum-fee, stats.AvailableForPayout)
	assert.Equal(t, len(eligible), stats.UnpaidOrdersCount)
}

func TestFailedPayoutsExcludedFromBothBuckets(t *testing.T) {
	orders := []order.Order{completedOrder("o1", 3000)}
	payouts := []Payout{{ID: "p1", Status: StatusFailed, Amount: 2700, OrderIDs: []string{"o1"}}}

	stats := ComputeStats(orders, payouts)
	assert.Zero(t, stats.TotalPaidOut)
	assert.Zero(t, stats.PendingPayouts)
	// A failed payout still claims its orders; re-requesting is a separate
	// operator concern, not automatic re-eligibility.
	assert.Zero(t, stats.AvailableForPayout)
}
