package checkout

import "github.com/shopspring/decimal"

// PlatformFeeCents computes the marketplace cut of a gross amount from a
// basis-point rate, rounding halves up at the cent. The fee is computed once
// at checkout and stored on the transaction row; later rate changes never
// touch existing rows.
func PlatformFeeCents(grossCents int64, basisPoints int) int64 {
	gross := decimal.NewFromInt(grossCents)
	rate := decimal.New(int64(basisPoints), -4)
	return gross.Mul(rate).Round(0).IntPart()
}

// feeForBooking resolves the platform fee for one booking. A negotiated fixed
// fee on the booking replaces the rate, clamped so the provider never owes
// more than the booking grossed.
func feeForBooking(grossCents int64, fixedFeeCents *int64, basisPoints int) int64 {
	if fixedFeeCents != nil {
		fee := *fixedFeeCents
		if fee < 0 {
			fee = 0
		}
		if fee > grossCents {
			fee = grossCents
		}
		return fee
	}
	return PlatformFeeCents(grossCents, basisPoints)
}
