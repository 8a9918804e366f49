package pricing

// All money in TuneHire is integer cents. The two marketplace fees are
// charged at different points and must never be conflated:
//
//   - PaymentFeeBps is taken when the buyer's payment is captured; it is the
//     application fee on the payment intent.
//   - PayoutFeeBps is taken when a seller batches completed orders into a
//     payout request.
const (
	// PaymentFeeBps is the platform's cut at payment-capture time (5%).
	PaymentFeeBps = 500

	// PayoutFeeBps is the platform's cut at payout-aggregation time (10%).
	PayoutFeeBps = 1000
)

// OrderTotal returns the snapshot price of an order: the seller's
// per-minute rate times the requested length. The result is stored on the
// order at creation and never recomputed.
func OrderTotal(pricePerMinuteCents int64, lengthMinutes int) int64 {
	return pricePerMinuteCents * int64(lengthMinutes)
}

// SplitFee divides totalCents into a platform fee and a remainder at the
// given basis-point rate. The fee rounds half-up at cent precision, and
// fee + remainder always equals totalCents.
func SplitFee(totalCents int64, bps int64) (feeCents, remainderCents int64) {
	feeCents = (totalCents*bps + 5000) / 10000
	return feeCents, totalCents - feeCents
}

// PayoutNet returns the amount a seller receives for a batch of completed
// orders summing to totalCents, after the payout fee.
func PayoutNet(totalCents int64) int64 {
	_, net := SplitFee(totalCents, PayoutFeeBps)
	return net
}
