package fees

import "math/big"

const (
	// DefaultRatePerMille is the protocol fee rate applied to both the
	// operator and sponsor cuts.
	DefaultRatePerMille uint64 = 3
	// WaiverThreshold is the amount below which the fee is waived
	// entirely.
	WaiverThreshold uint64 = 100
	// minimumFee is charged whenever the proportional fee rounds to zero
	// on a non-waived amount.
	minimumFee uint64 = 1
)

var perMille = big.NewInt(1000)

// Split divides a gross amount into the take-home portion and the protocol
// fee at the given per-mille rate. Amounts under the waiver threshold carry
// no fee; otherwise the fee is at least one unit. take + fee always equals
// amount.
//
// The same function splits a collected fee between the platform operator and
// a sponsor, applied to the fee amount itself.
func Split(amount, ratePerMille uint64) (take, fee uint64) {
	if amount < WaiverThreshold {
		return amount, 0
	}
	product := new(big.Int).SetUint64(amount)
	product.Mul(product, new(big.Int).SetUint64(ratePerMille))
	fee = product.Div(product, perMille).Uint64()
	if fee < minimumFee {
		fee = minimumFee
	}
	if fee > amount {
		fee = amount
	}
	return amount - fee, fee
}
