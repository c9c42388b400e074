// Package fixedpoint implements the scaled integer arithmetic used for
// currency conversion. Amounts and rates are fixed-point values with 18
// fractional decimal digits; a rate of 1.0 is represented as 10^18 scaled
// units. The multiplication is carried out at full width with math/big
// before dividing, so no precision is lost to early truncation. The final
// division floors toward zero: up to 10^18-1 scaled units may be dropped
// per conversion, which is accepted behavior.
package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Digits is the number of fractional decimal digits in the fixed-point
// representation.
const Digits = 18

// scale is 10^18 as a big integer.
var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Digits), nil)

// ToScaled converts a decimal into its 10^18-scaled integer representation,
// truncating any digits beyond the 18th fractional place.
func ToScaled(d decimal.Decimal) *big.Int {
	return d.Shift(Digits).BigInt()
}

// FromScaled converts a 10^18-scaled integer back into a decimal.
func FromScaled(i *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(i, -Digits)
}

// MulDiv returns floor(a * b / 10^18) on scaled integers.
func MulDiv(a, b *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, scale)
}

// Apply multiplies an amount by a rate, both expressed as decimals, and
// returns the floored result in smallest-denomination units. Apply(100, 1.5)
// is exactly 150; Apply(1, 1/3-ish) floors at the 18th fractional digit.
func Apply(amount, rate decimal.Decimal) decimal.Decimal {
	return FromScaled(MulDiv(ToScaled(amount), ToScaled(rate)))
}
