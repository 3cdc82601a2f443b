// Package fees implements the deterministic fee arithmetic shared by both
// ledgers. All amounts are non-negative integers in the smallest currency
// unit; division truncates toward zero.
package fees

import "math/big"

const bpsDenominator = 10000

// Compute splits amount into (fee, net) at the given basis-point rate:
// fee = amount * bps / 10000, net = amount - fee. For any rate at or below
// 10000 bps, fee+net == amount and 0 <= fee <= amount.
func Compute(amount *big.Int, bps uint64) (fee, net *big.Int) {
	fee = new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	fee.Quo(fee, big.NewInt(bpsDenominator))
	net = new(big.Int).Sub(amount, fee)
	return fee, net
}

// InRange reports whether min <= amount <= max.
func InRange(amount, min, max *big.Int) bool {
	return amount.Cmp(min) >= 0 && amount.Cmp(max) <= 0
}
