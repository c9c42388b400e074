package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyWholeRate(t *testing.T) {
	amount := decimal.NewFromInt(100)
	rate := decimal.NewFromFloat(1.5)

	got := Apply(amount, rate)

	assert.True(t, decimal.NewFromInt(150).Equal(got), "got %s", got)
}

func TestApplyFloorsTowardZero(t *testing.T) {
	// 1 * (1/3) cannot be represented exactly; the 18th fractional digit
	// must be the last one kept and the remainder dropped.
	amount := decimal.NewFromInt(1)
	rate := decimal.RequireFromString("0.333333333333333333")

	got := Apply(amount, rate)

	assert.Equal(t, "0.333333333333333333", got.String())
}

func TestApplyNoEarlyTruncation(t *testing.T) {
	// A large amount times a large rate overflows 64-bit intermediate math
	// but must survive the full-width multiplication.
	amount := decimal.RequireFromString("1000000000000")  // 10^12
	rate := decimal.RequireFromString("1000000000000")    // 10^12
	expected := decimal.RequireFromString("1" + zeros(24)) // 10^24

	got := Apply(amount, rate)

	assert.True(t, expected.Equal(got), "got %s", got)
}

func TestRoundTripLossBounded(t *testing.T) {
	// Converting A at rate R and back at a truncated 1/R never creates
	// value, and the loss stays below one smallest unit per scaled unit
	// of the intermediate amount.
	amount := decimal.NewFromInt(1000)
	rate := decimal.RequireFromString("0.0085")
	inverse := decimal.NewFromInt(1).DivRound(rate, Digits+2).Truncate(Digits)

	converted := Apply(amount, rate)
	back := Apply(converted, inverse)

	require.True(t, back.LessThanOrEqual(amount))
	loss := amount.Sub(back)
	maxLoss := converted.Add(decimal.NewFromInt(1)).Mul(decimal.New(1, -Digits))
	assert.True(t, loss.LessThanOrEqual(maxLoss), "loss %s", loss)
}

func TestScaledRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("42.000000000000000007")

	scaled := ToScaled(d)

	want, ok := new(big.Int).SetString("42000000000000000007", 10)
	require.True(t, ok)
	assert.Zero(t, scaled.Cmp(want))
	assert.True(t, d.Equal(FromScaled(scaled)))
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
