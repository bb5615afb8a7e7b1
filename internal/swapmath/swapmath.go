// Package swapmath computes a single bounded step of a swap: how far the
// price can move toward a target given the remaining amount, and the input,
// output, and fee for that step.
package swapmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/sqrtprice"
)

// ErrInvalidFeeForExactOut is returned for exact-output swaps at a fee of
// 100%, which can never produce output.
var ErrInvalidFeeForExactOut = errors.New("swapmath: exact output swap with 100 percent fee")

// FeeDenominator is the parts-per-million base for swap fees.
const FeeDenominator = 1_000_000

// StepResult describes the outcome of one swap step.
type StepResult struct {
	SqrtPriceNextX96 *uint256.Int
	AmountIn         *uint256.Int
	AmountOut        *uint256.Int
	FeeAmount        *uint256.Int
}

// ComputeSwapStep advances the price from current toward target, consuming at
// most the remaining amount. Positive amountRemaining means exact input (fee
// is carved out of the input before the price move); negative means exact
// output (the step supplies at most the requested output).
func ComputeSwapStep(
	sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity *uint256.Int,
	amountRemaining *big.Int,
	feePips uint32,
) (StepResult, error) {
	zeroForOne := sqrtPriceCurrentX96.Cmp(sqrtPriceTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	var res StepResult
	var err error

	if feePips >= FeeDenominator {
		// A 100% fee consumes the entire input without moving the price.
		// Exact output can never be satisfied at this fee; callers reject it
		// before stepping.
		if !exactIn {
			return res, ErrInvalidFeeForExactOut
		}
		res.SqrtPriceNextX96 = new(uint256.Int).Set(sqrtPriceCurrentX96)
		res.AmountIn = new(uint256.Int)
		res.AmountOut = new(uint256.Int)
		res.FeeAmount, _ = uint256.FromBig(amountRemaining)
		return res, nil
	}

	feeComplement := uint256.NewInt(uint64(FeeDenominator - feePips))

	if exactIn {
		remaining, _ := uint256.FromBig(amountRemaining)
		remainingLessFee, ferr := fullmath.MulDiv(remaining, feeComplement, uint256.NewInt(FeeDenominator))
		if ferr != nil {
			return res, ferr
		}
		if zeroForOne {
			res.AmountIn, err = sqrtprice.Amount0Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, true)
		} else {
			res.AmountIn, err = sqrtprice.Amount1Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, true)
		}
		if err != nil {
			return res, err
		}
		if remainingLessFee.Cmp(res.AmountIn) >= 0 {
			res.SqrtPriceNextX96 = new(uint256.Int).Set(sqrtPriceTargetX96)
		} else {
			res.SqrtPriceNextX96, err = sqrtprice.NextSqrtPriceFromInput(sqrtPriceCurrentX96, liquidity, remainingLessFee, zeroForOne)
			if err != nil {
				return res, err
			}
		}
	} else {
		requested, _ := uint256.FromBig(new(big.Int).Neg(amountRemaining))
		if zeroForOne {
			res.AmountOut, err = sqrtprice.Amount1Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, false)
		} else {
			res.AmountOut, err = sqrtprice.Amount0Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, false)
		}
		if err != nil {
			return res, err
		}
		if requested.Cmp(res.AmountOut) >= 0 {
			res.SqrtPriceNextX96 = new(uint256.Int).Set(sqrtPriceTargetX96)
		} else {
			res.SqrtPriceNextX96, err = sqrtprice.NextSqrtPriceFromOutput(sqrtPriceCurrentX96, liquidity, requested, zeroForOne)
			if err != nil {
				return res, err
			}
		}
	}

	reachedTarget := sqrtPriceTargetX96.Eq(res.SqrtPriceNextX96)

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			res.AmountIn, err = sqrtprice.Amount0Delta(res.SqrtPriceNextX96, sqrtPriceCurrentX96, liquidity, true)
			if err != nil {
				return res, err
			}
		}
		if !(reachedTarget && !exactIn) {
			res.AmountOut, err = sqrtprice.Amount1Delta(res.SqrtPriceNextX96, sqrtPriceCurrentX96, liquidity, false)
			if err != nil {
				return res, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			res.AmountIn, err = sqrtprice.Amount1Delta(sqrtPriceCurrentX96, res.SqrtPriceNextX96, liquidity, true)
			if err != nil {
				return res, err
			}
		}
		if !(reachedTarget && !exactIn) {
			res.AmountOut, err = sqrtprice.Amount0Delta(sqrtPriceCurrentX96, res.SqrtPriceNextX96, liquidity, false)
			if err != nil {
				return res, err
			}
		}
	}

	if !exactIn {
		requested, _ := uint256.FromBig(new(big.Int).Neg(amountRemaining))
		if res.AmountOut.Cmp(requested) > 0 {
			res.AmountOut = requested
		}
	}

	if exactIn && !reachedTarget {
		// Whatever input was not consumed by the price move is the fee.
		remaining, _ := uint256.FromBig(amountRemaining)
		res.FeeAmount = new(uint256.Int).Sub(remaining, res.AmountIn)
	} else {
		res.FeeAmount, err = fullmath.MulDivRoundingUp(res.AmountIn, uint256.NewInt(uint64(feePips)), feeComplement)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
