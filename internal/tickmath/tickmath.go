// Package tickmath maps between tick indexes and Q96 square-root prices.
//
// The forward mapping composes precomputed powers of sqrt(1.0001) over the
// bit decomposition of the tick magnitude; the inverse binary-searches the
// forward mapping for the largest tick whose price does not exceed the input.
// Only forward-then-inverse round trips are exact.
package tickmath

import (
	"errors"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	// MinSqrtPrice is the Q96 sqrt price at MinTick.
	MinSqrtPrice = uint256.NewInt(4295128739)
	// MaxSqrtPrice is the Q96 sqrt price at MaxTick.
	MaxSqrtPrice = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfBounds      = errors.New("tick out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")
)

// sqrtRatios[i] is sqrt(1.0001^-(2^i)) in Q128, i = 0..19.
var sqrtRatios = [20]*uint256.Int{
	uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
	uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
	uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
}

var (
	oneQ128    = uint256.MustFromHex("0x100000000000000000000000000000000")
	maxUint256 = new(uint256.Int).Not(uint256.NewInt(0))
	lowMask32  = uint256.NewInt(0xffffffff)
)

// SqrtPriceAtTick returns sqrt(1.0001^tick) * 2^96.
func SqrtPriceAtTick(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfBounds
	}
	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-int64(tick))
	}

	ratio := new(uint256.Int).Set(oneQ128)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatios[0])
	}
	for i := 1; i < len(sqrtRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, sqrtRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the inverse mapping stays consistent.
	price := new(uint256.Int).Rsh(ratio, 32)
	if !new(uint256.Int).And(ratio, lowMask32).IsZero() {
		price.Add(price, uint256.NewInt(1))
	}
	return price, nil
}

// TickAtSqrtPrice returns the largest tick whose sqrt price is at most the
// given price. The price must lie in [MinSqrtPrice, MaxSqrtPrice).
func TickAtSqrtPrice(sqrtPriceX96 *uint256.Int) (int32, error) {
	if sqrtPriceX96.Cmp(MinSqrtPrice) < 0 || sqrtPriceX96.Cmp(MaxSqrtPrice) >= 0 {
		return 0, ErrSqrtPriceOutOfBounds
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		price, err := SqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if price.Cmp(sqrtPriceX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// MaxLiquidityPerTick returns the most liquidity a single tick may reference
// for the given spacing, so that the sum over all usable ticks cannot
// overflow uint128.
func MaxLiquidityPerTick(tickSpacing int32) *uint256.Int {
	minUsable := (MinTick / tickSpacing) * tickSpacing
	maxUsable := (MaxTick / tickSpacing) * tickSpacing
	numTicks := uint64((maxUsable-minUsable)/tickSpacing) + 1
	return new(uint256.Int).Div(fullmath.MaxUint128, uint256.NewInt(numTicks))
}
