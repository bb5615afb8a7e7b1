package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

// TickInfo tracks the liquidity boundary state at one initialized tick.
type TickInfo struct {
	// LiquidityGross is the total liquidity referencing this tick from
	// either side; the tick is initialized iff it is nonzero.
	LiquidityGross *uint256.Int
	// LiquidityNet is the signed liquidity change applied when the price
	// crosses this tick left to right.
	LiquidityNet *big.Int
	// FeeGrowthOutside accumulators track fee growth on the side of this
	// tick away from the current price at last touch. Ring counters.
	FeeGrowthOutside0X128 *uint256.Int
	FeeGrowthOutside1X128 *uint256.Int
}

func newTickInfo() *TickInfo {
	return &TickInfo{
		LiquidityGross:        new(uint256.Int),
		LiquidityNet:          new(big.Int),
		FeeGrowthOutside0X128: new(uint256.Int),
		FeeGrowthOutside1X128: new(uint256.Int),
	}
}

// update applies a liquidity delta to the tick and reports whether the tick
// flipped between initialized and uninitialized.
func (t *TickInfo) update(
	liquidityDelta *big.Int,
	tick, currentTick int32,
	feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int,
	upper bool,
	maxLiquidity *uint256.Int,
) (bool, error) {
	grossBefore := t.LiquidityGross
	grossAfter, err := addLiquidityDelta(grossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if grossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrTickLiquidityOverflow
	}
	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	if grossBefore.IsZero() && tick <= currentTick {
		// First occupation at or below the current price: by convention all
		// growth so far happened on the lower side of this tick.
		t.FeeGrowthOutside0X128 = new(uint256.Int).Set(feeGrowthGlobal0X128)
		t.FeeGrowthOutside1X128 = new(uint256.Int).Set(feeGrowthGlobal1X128)
	}

	t.LiquidityGross = grossAfter
	if upper {
		t.LiquidityNet = new(big.Int).Sub(t.LiquidityNet, liquidityDelta)
	} else {
		t.LiquidityNet = new(big.Int).Add(t.LiquidityNet, liquidityDelta)
	}
	if err := checkInt128(t.LiquidityNet); err != nil {
		return false, err
	}
	return flipped, nil
}

// cross moves the tick to the other side of the current price: the outside
// accumulators flip relative to the globals. Returns the net liquidity to
// apply for a left-to-right crossing.
func (t *TickInfo) cross(feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int) *big.Int {
	t.FeeGrowthOutside0X128 = fullmath.WrappingSub(feeGrowthGlobal0X128, t.FeeGrowthOutside0X128)
	t.FeeGrowthOutside1X128 = fullmath.WrappingSub(feeGrowthGlobal1X128, t.FeeGrowthOutside1X128)
	return t.LiquidityNet
}

// tickOrDefault returns the stored tick info or a zero-valued view.
func (p *Pool) tickOrDefault(tick int32) *TickInfo {
	if info, ok := p.Ticks[tick]; ok {
		return info
	}
	return newTickInfo()
}

// tickAndInitIfAbsent returns the stored tick info, creating it on demand.
func (p *Pool) tickAndInitIfAbsent(tick int32) *TickInfo {
	if info, ok := p.Ticks[tick]; ok {
		return info
	}
	info := newTickInfo()
	p.Ticks[tick] = info
	return info
}

// feeGrowthInside computes the fee growth accrued inside [tickLower,
// tickUpper) using the below/above decomposition. All subtraction is ring
// arithmetic mod 2^256.
func (p *Pool) feeGrowthInside(tickLower, tickUpper int32) (*uint256.Int, *uint256.Int) {
	lower := p.tickOrDefault(tickLower)
	upper := p.tickOrDefault(tickUpper)

	var below0, below1 *uint256.Int
	if p.Tick >= tickLower {
		below0 = lower.FeeGrowthOutside0X128
		below1 = lower.FeeGrowthOutside1X128
	} else {
		below0 = fullmath.WrappingSub(p.FeeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1 = fullmath.WrappingSub(p.FeeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	var above0, above1 *uint256.Int
	if p.Tick < tickUpper {
		above0 = upper.FeeGrowthOutside0X128
		above1 = upper.FeeGrowthOutside1X128
	} else {
		above0 = fullmath.WrappingSub(p.FeeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1 = fullmath.WrappingSub(p.FeeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 := fullmath.WrappingSub(fullmath.WrappingSub(p.FeeGrowthGlobal0X128, below0), above0)
	inside1 := fullmath.WrappingSub(fullmath.WrappingSub(p.FeeGrowthGlobal1X128, below1), above1)
	return inside0, inside1
}
