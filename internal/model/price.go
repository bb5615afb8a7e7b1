package model

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var q96Decimal = decimal.NewFromInt(2).Pow(decimal.NewFromInt(96))

// PriceFromSqrtX96 renders a Q96 square-root price as a human-readable
// decimal price (asset1 per asset0). Display only; never used in pool math.
func PriceFromSqrtX96(sqrtPriceX96 *uint256.Int) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return decimal.Zero
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96.ToBig(), 0).DivRound(q96Decimal, 32)
	return sqrt.Mul(sqrt)
}
