// Package pool holds the per-pool pricing state machine: concentrated
// liquidity keyed by tick range, a sqrt price that moves tick by tick during
// swaps, and fee growth accumulators settled lazily into positions.
package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/model"
	"liquidityCore/internal/sqrtprice"
	"liquidityCore/internal/swapmath"
	"liquidityCore/internal/tickmath"
)

// MaxProtocolFee is the cap per swap direction, in pips (0.1%).
const MaxProtocolFee = 1000

// Pool is the full state of one pool. A zero SqrtPriceX96 means the pool has
// not been initialized.
type Pool struct {
	SqrtPriceX96 *uint256.Int
	Tick         int32
	// ProtocolFee packs two directional fees: the low 12 bits apply to
	// zero-for-one swaps, the next 12 bits to one-for-zero.
	ProtocolFee uint32
	LPFee       uint32

	FeeGrowthGlobal0X128 *uint256.Int
	FeeGrowthGlobal1X128 *uint256.Int

	// Liquidity active at the current tick.
	Liquidity *uint256.Int

	Ticks     map[int32]*TickInfo
	Bitmap    TickBitmap
	Positions map[common.Hash]*Position
}

// New returns an empty, uninitialized pool.
func New() *Pool {
	return &Pool{
		SqrtPriceX96:         new(uint256.Int),
		FeeGrowthGlobal0X128: new(uint256.Int),
		FeeGrowthGlobal1X128: new(uint256.Int),
		Liquidity:            new(uint256.Int),
		Ticks:                make(map[int32]*TickInfo),
		Bitmap:               make(TickBitmap),
		Positions:            make(map[common.Hash]*Position),
	}
}

// IsInitialized reports whether Initialize has run.
func (p *Pool) IsInitialized() bool {
	return !p.SqrtPriceX96.IsZero()
}

func (p *Pool) checkInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// ProtocolFeeZeroForOne extracts the fee charged on zero-for-one swaps.
func ProtocolFeeZeroForOne(fee uint32) uint32 { return fee & 0xfff }

// ProtocolFeeOneForZero extracts the fee charged on one-for-zero swaps.
func ProtocolFeeOneForZero(fee uint32) uint32 { return (fee >> 12) & 0xfff }

// ValidateProtocolFee checks both directional components against the cap.
func ValidateProtocolFee(fee uint32) error {
	if ProtocolFeeZeroForOne(fee) > MaxProtocolFee || ProtocolFeeOneForZero(fee) > MaxProtocolFee {
		return ErrProtocolFeeTooLarge
	}
	return nil
}

// swapFee combines the protocol fee with the LP fee so that the protocol
// takes its cut first and the LP fee applies to what remains:
// protocolFee + lpFee * (1e6 - protocolFee) / 1e6, in pips.
func swapFee(protocolFee, lpFee uint32) uint32 {
	if protocolFee == 0 {
		return lpFee
	}
	numerator := uint64(protocolFee) * uint64(lpFee)
	return protocolFee + lpFee - uint32(numerator/swapmath.FeeDenominator)
}

// Initialize sets the starting price and fees. The initial tick is the
// largest tick whose price does not exceed sqrtPriceX96.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int, protocolFee, lpFee uint32) (int32, error) {
	if p.IsInitialized() {
		return 0, ErrAlreadyInitialized
	}
	if err := ValidateProtocolFee(protocolFee); err != nil {
		return 0, err
	}
	if lpFee > model.LPFeeMax {
		return 0, ErrLPFeeTooLarge
	}
	tick, err := tickmath.TickAtSqrtPrice(sqrtPriceX96)
	if err != nil {
		return 0, err
	}
	p.SqrtPriceX96 = new(uint256.Int).Set(sqrtPriceX96)
	p.Tick = tick
	p.ProtocolFee = protocolFee
	p.LPFee = lpFee
	return tick, nil
}

// SetProtocolFee replaces the packed protocol fee.
func (p *Pool) SetProtocolFee(fee uint32) error {
	if err := p.checkInitialized(); err != nil {
		return err
	}
	if err := ValidateProtocolFee(fee); err != nil {
		return err
	}
	p.ProtocolFee = fee
	return nil
}

// SetLPFee replaces the stored LP fee; used by dynamic-fee pools.
func (p *Pool) SetLPFee(fee uint32) error {
	if err := p.checkInitialized(); err != nil {
		return err
	}
	if fee > model.LPFeeMax {
		return ErrLPFeeTooLarge
	}
	p.LPFee = fee
	return nil
}

// ModifyLiquidityParams describes a liquidity change on one position.
type ModifyLiquidityParams struct {
	Owner          common.Address
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
	TickSpacing    int32
	Salt           common.Hash
}

func checkTicks(tickLower, tickUpper, tickSpacing int32) error {
	if tickLower >= tickUpper {
		return ErrTicksMisordered
	}
	if tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return ErrTickOutOfBounds
	}
	if tickLower%tickSpacing != 0 || tickUpper%tickSpacing != 0 {
		return ErrTickMisaligned
	}
	return nil
}

// ModifyLiquidity adds or removes liquidity on a position. The first return
// is what the caller owes for the principal change net of fees earned; the
// second is the fee portion alone (always owed to the caller, so never
// positive).
func (p *Pool) ModifyLiquidity(params ModifyLiquidityParams) (model.BalanceDelta, model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	if err := p.checkInitialized(); err != nil {
		return zero, zero, err
	}
	if err := checkTicks(params.TickLower, params.TickUpper, params.TickSpacing); err != nil {
		return zero, zero, err
	}
	delta := params.LiquidityDelta
	if err := checkInt128(delta); err != nil {
		return zero, zero, err
	}

	var flippedLower, flippedUpper bool
	if delta.Sign() != 0 {
		maxLiquidity := tickmath.MaxLiquidityPerTick(params.TickSpacing)
		var err error
		flippedLower, err = p.tickAndInitIfAbsent(params.TickLower).update(
			delta, params.TickLower, p.Tick,
			p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128,
			false, maxLiquidity,
		)
		if err != nil {
			return zero, zero, err
		}
		flippedUpper, err = p.tickAndInitIfAbsent(params.TickUpper).update(
			delta, params.TickUpper, p.Tick,
			p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128,
			true, maxLiquidity,
		)
		if err != nil {
			return zero, zero, err
		}
		if flippedLower {
			if err := p.Bitmap.flip(params.TickLower, params.TickSpacing); err != nil {
				return zero, zero, err
			}
		}
		if flippedUpper {
			if err := p.Bitmap.flip(params.TickUpper, params.TickSpacing); err != nil {
				return zero, zero, err
			}
		}
	}

	inside0, inside1 := p.feeGrowthInside(params.TickLower, params.TickUpper)

	key := PositionKey(params.Owner, params.TickLower, params.TickUpper, params.Salt)
	position, ok := p.Positions[key]
	if !ok {
		if delta.Sign() == 0 {
			return zero, zero, ErrPositionNotFound
		}
		position = newPosition()
		p.Positions[key] = position
	}
	feesOwed0, feesOwed1, err := position.update(delta, inside0, inside1)
	if err != nil {
		return zero, zero, err
	}
	if position.Liquidity.IsZero() {
		delete(p.Positions, key)
	}

	if delta.Sign() < 0 {
		if flippedLower {
			delete(p.Ticks, params.TickLower)
		}
		if flippedUpper {
			delete(p.Ticks, params.TickUpper)
		}
	}

	sqrtLower, err := tickmath.SqrtPriceAtTick(params.TickLower)
	if err != nil {
		return zero, zero, err
	}
	sqrtUpper, err := tickmath.SqrtPriceAtTick(params.TickUpper)
	if err != nil {
		return zero, zero, err
	}

	principal0, principal1 := new(big.Int), new(big.Int)
	if delta.Sign() != 0 {
		switch {
		case p.Tick < params.TickLower:
			// Range entirely above the price: held in currency0 only.
			principal0, err = sqrtprice.Amount0DeltaSigned(sqrtLower, sqrtUpper, delta)
		case p.Tick < params.TickUpper:
			principal0, err = sqrtprice.Amount0DeltaSigned(p.SqrtPriceX96, sqrtUpper, delta)
			if err == nil {
				principal1, err = sqrtprice.Amount1DeltaSigned(sqrtLower, p.SqrtPriceX96, delta)
			}
			if err == nil {
				p.Liquidity, err = addLiquidityDelta(p.Liquidity, delta)
			}
		default:
			principal1, err = sqrtprice.Amount1DeltaSigned(sqrtLower, sqrtUpper, delta)
		}
		if err != nil {
			return zero, zero, err
		}
	}

	feesAccrued := model.NewBalanceDelta(
		new(big.Int).Neg(feesOwed0.ToBig()),
		new(big.Int).Neg(feesOwed1.ToBig()),
	)
	callerDelta := model.NewBalanceDelta(principal0, principal1).Add(feesAccrued)
	return callerDelta, feesAccrued, nil
}

// SwapParams describes one swap. AmountSpecified is positive for exact input
// and negative for exact output. LPFeeOverride carries the dynamic-fee
// override flag when a hook sets the fee for this swap.
type SwapParams struct {
	TickSpacing       int32
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *uint256.Int
	LPFeeOverride     uint32
}

// SwapResult reports the aggregate outcome of a swap.
type SwapResult struct {
	Delta model.BalanceDelta
	// AmountToProtocol is the input-currency fee skimmed for the protocol.
	AmountToProtocol *uint256.Int
	// SwapFee is the effective total fee in pips used for this swap.
	SwapFee uint32
}

// Swap moves the price along initialized ticks until the specified amount is
// consumed or the price limit is hit. Delta follows the usual convention:
// positive amounts are owed to the pool.
func (p *Pool) Swap(params SwapParams) (SwapResult, error) {
	var res SwapResult
	if err := p.checkInitialized(); err != nil {
		return res, err
	}
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return res, ErrSwapAmountZero
	}

	zeroForOne := params.ZeroForOne
	exactInput := params.AmountSpecified.Sign() > 0

	protocolFee := ProtocolFeeOneForZero(p.ProtocolFee)
	if zeroForOne {
		protocolFee = ProtocolFeeZeroForOne(p.ProtocolFee)
	}
	lpFee := p.LPFee
	if params.LPFeeOverride&model.LPFeeOverrideFlag != 0 {
		lpFee = params.LPFeeOverride &^ model.LPFeeOverrideFlag
		if lpFee > model.LPFeeMax {
			return res, ErrLPFeeTooLarge
		}
	}
	fee := swapFee(protocolFee, lpFee)
	if fee >= swapmath.FeeDenominator && !exactInput {
		return res, ErrInvalidFeeForExactOut
	}

	limit := params.SqrtPriceLimitX96
	if zeroForOne {
		if limit.Cmp(p.SqrtPriceX96) >= 0 {
			return res, ErrPriceLimitAlreadyReached
		}
		if limit.Cmp(tickmath.MinSqrtPrice) < 0 {
			return res, ErrPriceLimitOutOfBounds
		}
	} else {
		if limit.Cmp(p.SqrtPriceX96) <= 0 {
			return res, ErrPriceLimitAlreadyReached
		}
		if limit.Cmp(tickmath.MaxSqrtPrice) > 0 {
			return res, ErrPriceLimitOutOfBounds
		}
	}

	remaining := new(big.Int).Set(params.AmountSpecified)
	amountCalculated := new(big.Int)
	sqrtPrice := new(uint256.Int).Set(p.SqrtPriceX96)
	tick := p.Tick
	liquidity := new(uint256.Int).Set(p.Liquidity)
	feeGrowthGlobal := new(uint256.Int).Set(p.FeeGrowthGlobal1X128)
	if zeroForOne {
		feeGrowthGlobal.Set(p.FeeGrowthGlobal0X128)
	}
	amountToProtocol := new(uint256.Int)

	for remaining.Sign() != 0 && !sqrtPrice.Eq(limit) {
		nextTick, initialized := p.Bitmap.nextInitializedTickWithinOneWord(tick, params.TickSpacing, zeroForOne)
		if nextTick < tickmath.MinTick {
			nextTick = tickmath.MinTick
		}
		if nextTick > tickmath.MaxTick {
			nextTick = tickmath.MaxTick
		}
		sqrtPriceNext, err := tickmath.SqrtPriceAtTick(nextTick)
		if err != nil {
			return res, err
		}
		target := sqrtPriceNext
		if zeroForOne {
			if target.Cmp(limit) < 0 {
				target = limit
			}
		} else {
			if target.Cmp(limit) > 0 {
				target = limit
			}
		}

		step, err := swapmath.ComputeSwapStep(sqrtPrice, target, liquidity, remaining, fee)
		if err != nil {
			return res, err
		}

		amountInWithFee := new(big.Int).Add(step.AmountIn.ToBig(), step.FeeAmount.ToBig())
		if exactInput {
			remaining.Sub(remaining, amountInWithFee)
			amountCalculated.Sub(amountCalculated, step.AmountOut.ToBig())
		} else {
			remaining.Add(remaining, step.AmountOut.ToBig())
			amountCalculated.Add(amountCalculated, amountInWithFee)
		}

		feeAmount := new(uint256.Int).Set(step.FeeAmount)
		if protocolFee > 0 {
			skim := new(uint256.Int)
			if fee == protocolFee {
				// LP fee is zero, the protocol takes the whole fee.
				skim.Set(feeAmount)
			} else {
				total := new(uint256.Int).Add(step.AmountIn, feeAmount)
				skim.Mul(total, uint256.NewInt(uint64(protocolFee)))
				skim.Div(skim, uint256.NewInt(swapmath.FeeDenominator))
			}
			feeAmount.Sub(feeAmount, skim)
			amountToProtocol.Add(amountToProtocol, skim)
		}

		if !liquidity.IsZero() && !feeAmount.IsZero() {
			growth, err := fullmath.MulDiv(feeAmount, fullmath.Q128, liquidity)
			if err != nil {
				return res, err
			}
			feeGrowthGlobal = fullmath.WrappingAdd(feeGrowthGlobal, growth)
		}

		sqrtPrice = step.SqrtPriceNextX96
		if sqrtPrice.Eq(sqrtPriceNext) {
			if initialized {
				var global0, global1 *uint256.Int
				if zeroForOne {
					global0, global1 = feeGrowthGlobal, p.FeeGrowthGlobal1X128
				} else {
					global0, global1 = p.FeeGrowthGlobal0X128, feeGrowthGlobal
				}
				liquidityNet := p.Ticks[nextTick].cross(global0, global1)
				if zeroForOne {
					liquidityNet = new(big.Int).Neg(liquidityNet)
				}
				liquidity, err = addLiquidityDelta(liquidity, liquidityNet)
				if err != nil {
					return res, err
				}
			}
			if zeroForOne {
				tick = nextTick - 1
			} else {
				tick = nextTick
			}
		} else if !sqrtPrice.Eq(p.SqrtPriceX96) {
			tick, err = tickmath.TickAtSqrtPrice(sqrtPrice)
			if err != nil {
				return res, err
			}
		}
	}

	p.SqrtPriceX96 = sqrtPrice
	p.Tick = tick
	p.Liquidity = liquidity
	if zeroForOne {
		p.FeeGrowthGlobal0X128 = feeGrowthGlobal
	} else {
		p.FeeGrowthGlobal1X128 = feeGrowthGlobal
	}

	consumed := new(big.Int).Sub(params.AmountSpecified, remaining)
	var delta model.BalanceDelta
	if zeroForOne == exactInput {
		delta = model.NewBalanceDelta(consumed, amountCalculated)
	} else {
		delta = model.NewBalanceDelta(amountCalculated, consumed)
	}

	res.Delta = delta
	res.AmountToProtocol = amountToProtocol
	res.SwapFee = fee
	return res, nil
}

// Donate pays amounts directly into the fee growth accumulators, pro rata to
// the liquidity active at the current tick.
func (p *Pool) Donate(amount0, amount1 *uint256.Int) (model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	if err := p.checkInitialized(); err != nil {
		return zero, err
	}
	if p.Liquidity.IsZero() {
		return zero, ErrNoLiquidityToReceiveFees
	}
	if !amount0.IsZero() {
		growth, err := fullmath.MulDiv(amount0, fullmath.Q128, p.Liquidity)
		if err != nil {
			return zero, err
		}
		p.FeeGrowthGlobal0X128 = fullmath.WrappingAdd(p.FeeGrowthGlobal0X128, growth)
	}
	if !amount1.IsZero() {
		growth, err := fullmath.MulDiv(amount1, fullmath.Q128, p.Liquidity)
		if err != nil {
			return zero, err
		}
		p.FeeGrowthGlobal1X128 = fullmath.WrappingAdd(p.FeeGrowthGlobal1X128, growth)
	}
	return model.NewBalanceDelta(amount0.ToBig(), amount1.ToBig()), nil
}
