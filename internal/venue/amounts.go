package venue

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10_000

// SellAmount returns floor(balance × fraction), with fraction clamped to (0, 1].
func SellAmount(balance uint64, fraction float64) uint64 {
	if fraction <= 0 || balance == 0 {
		return 0
	}
	if fraction >= 1 {
		return balance
	}
	return toUint64(fromUint64(balance).Mul(decimal.NewFromFloat(fraction)))
}

// MinimumOut returns the constant-product output for selling amountIn tokens into
// reserves (tokenReserves, solReserves), less the venue fee and slippage tolerance.
func MinimumOut(amountIn, tokenReserves, solReserves uint64, feeBps, slippageBps uint64) uint64 {
	if amountIn == 0 || tokenReserves == 0 || solReserves == 0 {
		return 0
	}
	if feeBps >= bpsDenominator || slippageBps >= bpsDenominator {
		return 0
	}

	in := fromUint64(amountIn)
	gross := fromUint64(solReserves).Mul(in).Div(fromUint64(tokenReserves).Add(in))

	denom := decimal.NewFromInt(bpsDenominator)
	afterFee := gross.Mul(decimal.NewFromInt(int64(bpsDenominator - feeBps))).Div(denom)
	return toUint64(afterFee.Mul(decimal.NewFromInt(int64(bpsDenominator - slippageBps))).Div(denom))
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toUint64(d decimal.Decimal) uint64 {
	if d.IsNegative() {
		return 0
	}
	b := d.Floor().BigInt()
	if !b.IsUint64() {
		return ^uint64(0)
	}
	return b.Uint64()
}
