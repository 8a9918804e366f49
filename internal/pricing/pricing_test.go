package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTotal(t *testing.T) {
	// $10.00/min for 3 minutes = $30.00
	assert.Equal(t, int64(3000), OrderTotal(1000, 3))
	assert.Equal(t, int64(0), OrderTotal(1000, 0))
	assert.Equal(t, int64(12345), OrderTotal(2469, 5))
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		bps     int64
		wantFee int64
	}{
		{"5% of $30.00", 3000, PaymentFeeBps, 150},
		{"10% of $30.00", 3000, PayoutFeeBps, 300},
		{"5% rounds half-up", 1010, PaymentFeeBps, 51}, // 50.5 -> 51
		{"10% of odd cents", 1005, PayoutFeeBps, 101},  // 100.5 -> 101
		{"zero total", 0, PaymentFeeBps, 0},
		{"single cent", 1, PaymentFeeBps, 0}, // 0.05 -> 0
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, rest := SplitFee(tt.total, tt.bps)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.total, fee+rest, "split must not leak cents")
		})
	}
}

func TestSplitFeeNeverLeaks(t *testing.T) {
	for total := int64(0); total < 2000; total++ {
		for _, bps := range []int64{PaymentFeeBps, PayoutFeeBps} {
			fee, rest := SplitFee(total, bps)
			if fee+rest != total {
				t.Fatalf("leak at total=%d bps=%d: fee=%d rest=%d", total, bps, fee, rest)
			}
		}
	}
}

func TestPayoutNet(t *testing.T) {
	// 90% of $30.00 = $27.00
	assert.Equal(t, int64(2700), PayoutNet(3000))
	assert.Equal(t, int64(0), PayoutNet(0))
}
