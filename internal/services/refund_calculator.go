package services

import "math"

// CalculateRefund computes the refund for a cancellation. A refundable
// cancellation refunds the charged price minus the policy's cancellation
// fee, rounded to cents; past the cutoff nothing is refunded.
func CalculateRefund(priceCharged float64, cancellationFeePercent int, refundable bool) float64 {
	if !refundable {
		return 0
	}
	return round2(priceCharged * (1 - float64(cancellationFeePercent)/100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
