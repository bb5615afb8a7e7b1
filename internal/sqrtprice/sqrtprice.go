// Package sqrtprice computes asset amounts for liquidity between two Q96
// square-root prices, and the price reached by spending or demanding a given
// amount. Rounding direction is always explicit: amounts a counterparty must
// deposit round up, amounts paid out round down, so the pool never pays out
// more than it received.
package sqrtprice

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

var (
	ErrPriceZero             = errors.New("sqrt price must be positive")
	ErrLiquidityZero         = errors.New("liquidity must be positive")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for requested amount")
	ErrPriceOverflow         = errors.New("next sqrt price exceeds uint160")
)

// Amount0Delta returns the asset0 amount needed to move liquidity between the
// two prices, rounding in the requested direction.
func Amount0Delta(sqrtPriceAX96, sqrtPriceBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtPriceAX96.Cmp(sqrtPriceBX96) > 0 {
		sqrtPriceAX96, sqrtPriceBX96 = sqrtPriceBX96, sqrtPriceAX96
	}
	if sqrtPriceAX96.IsZero() {
		return nil, ErrPriceZero
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtPriceBX96, sqrtPriceAX96)

	if roundUp {
		inner, err := fullmath.MulDivRoundingUp(numerator1, numerator2, sqrtPriceBX96)
		if err != nil {
			return nil, err
		}
		return fullmath.DivRoundingUp(inner, sqrtPriceAX96)
	}
	inner, err := fullmath.MulDiv(numerator1, numerator2, sqrtPriceBX96)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(inner, sqrtPriceAX96), nil
}

// Amount1Delta returns the asset1 amount needed to move liquidity between the
// two prices, rounding in the requested direction.
func Amount1Delta(sqrtPriceAX96, sqrtPriceBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtPriceAX96.Cmp(sqrtPriceBX96) > 0 {
		sqrtPriceAX96, sqrtPriceBX96 = sqrtPriceBX96, sqrtPriceAX96
	}
	diff := new(uint256.Int).Sub(sqrtPriceBX96, sqrtPriceAX96)
	if roundUp {
		return fullmath.MulDivRoundingUp(liquidity, diff, fullmath.Q96)
	}
	return fullmath.MulDiv(liquidity, diff, fullmath.Q96)
}

// Amount0DeltaSigned mirrors Amount0Delta for a signed liquidity delta:
// negative liquidity rounds down (amount returned to the caller), positive
// rounds up (amount the caller must deposit).
func Amount0DeltaSigned(sqrtPriceAX96, sqrtPriceBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	if liquidity.Sign() < 0 {
		l, _ := uint256.FromBig(new(big.Int).Neg(liquidity))
		amount, err := Amount0Delta(sqrtPriceAX96, sqrtPriceBX96, l, false)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Neg(amount.ToBig()), nil
	}
	l, _ := uint256.FromBig(liquidity)
	amount, err := Amount0Delta(sqrtPriceAX96, sqrtPriceBX96, l, true)
	if err != nil {
		return nil, err
	}
	return amount.ToBig(), nil
}

// Amount1DeltaSigned mirrors Amount1Delta for a signed liquidity delta.
func Amount1DeltaSigned(sqrtPriceAX96, sqrtPriceBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	if liquidity.Sign() < 0 {
		l, _ := uint256.FromBig(new(big.Int).Neg(liquidity))
		amount, err := Amount1Delta(sqrtPriceAX96, sqrtPriceBX96, l, false)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Neg(amount.ToBig()), nil
	}
	l, _ := uint256.FromBig(liquidity)
	amount, err := Amount1Delta(sqrtPriceAX96, sqrtPriceBX96, l, true)
	if err != nil {
		return nil, err
	}
	return amount.ToBig(), nil
}

// NextSqrtPriceFromInput returns the price after spending amountIn of the
// input asset at the given liquidity. Rounds so the pool never underestimates
// what the trader owes.
func NextSqrtPriceFromInput(sqrtPriceX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPriceX96.IsZero() {
		return nil, ErrPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount0RoundingUp(sqrtPriceX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1RoundingDown(sqrtPriceX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the price after withdrawing amountOut of
// the output asset at the given liquidity.
func NextSqrtPriceFromOutput(sqrtPriceX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPriceX96.IsZero() {
		return nil, ErrPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return nextSqrtPriceFromAmount1RoundingDown(sqrtPriceX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0RoundingUp(sqrtPriceX96, liquidity, amountOut, false)
}

func nextSqrtPriceFromAmount0RoundingUp(sqrtPriceX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int).Set(sqrtPriceX96), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	product := new(uint256.Int)
	_, overflow := product.MulOverflow(amount, sqrtPriceX96)

	if add {
		if !overflow {
			denominator := new(uint256.Int)
			if _, carry := denominator.AddOverflow(numerator1, product); !carry {
				return fullmath.MulDivRoundingUp(numerator1, sqrtPriceX96, denominator)
			}
		}
		// Fall back to the formulation that cannot overflow.
		denominator := new(uint256.Int).Div(numerator1, sqrtPriceX96)
		denominator.Add(denominator, amount)
		return fullmath.DivRoundingUp(numerator1, denominator)
	}

	if overflow || numerator1.Cmp(product) <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	next, err := fullmath.MulDivRoundingUp(numerator1, sqrtPriceX96, denominator)
	if err != nil {
		return nil, err
	}
	if next.Cmp(fullmath.MaxUint160) > 0 {
		return nil, ErrPriceOverflow
	}
	return next, nil
}

func nextSqrtPriceFromAmount1RoundingDown(sqrtPriceX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		var quotient *uint256.Int
		if amount.Cmp(fullmath.MaxUint160) <= 0 {
			quotient = new(uint256.Int).Lsh(amount, 96)
			quotient.Div(quotient, liquidity)
		} else {
			q, err := fullmath.MulDiv(amount, fullmath.Q96, liquidity)
			if err != nil {
				return nil, err
			}
			quotient = q
		}
		next := new(uint256.Int)
		if _, carry := next.AddOverflow(sqrtPriceX96, quotient); carry {
			return nil, ErrPriceOverflow
		}
		if next.Cmp(fullmath.MaxUint160) > 0 {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	var quotient *uint256.Int
	if amount.Cmp(fullmath.MaxUint160) <= 0 {
		q, err := fullmath.DivRoundingUp(new(uint256.Int).Lsh(amount, 96), liquidity)
		if err != nil {
			return nil, err
		}
		quotient = q
	} else {
		q, err := fullmath.MulDivRoundingUp(amount, fullmath.Q96, liquidity)
		if err != nil {
			return nil, err
		}
		quotient = q
	}
	if sqrtPriceX96.Cmp(quotient) <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	return new(uint256.Int).Sub(sqrtPriceX96, quotient), nil
}
