package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// addLiquidityDelta applies a signed delta to an unsigned 128-bit liquidity
// value, failing on underflow or on exceeding uint128.
func addLiquidityDelta(liquidity *uint256.Int, delta *big.Int) (*uint256.Int, error) {
	if delta.Sign() < 0 {
		dec, _ := uint256.FromBig(new(big.Int).Neg(delta))
		if liquidity.Cmp(dec) < 0 {
			return nil, ErrLiquidityUnderflow
		}
		return new(uint256.Int).Sub(liquidity, dec), nil
	}
	inc, overflow := uint256.FromBig(delta)
	if overflow {
		return nil, ErrLiquidityOverflow
	}
	next := new(uint256.Int).Add(liquidity, inc)
	if next.Cmp(fullmath.MaxUint128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	return next, nil
}

func checkInt128(v *big.Int) error {
	if v.Cmp(maxInt128) > 0 || v.Cmp(minInt128) < 0 {
		return ErrLiquidityNetOverflow
	}
	return nil
}
