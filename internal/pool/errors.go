package pool

import (
	"errors"

	"liquidityCore/internal/swapmath"
)

var (
	ErrAlreadyInitialized       = errors.New("pool already initialized")
	ErrNotInitialized           = errors.New("pool not initialized")
	ErrTicksMisordered          = errors.New("tick range misordered")
	ErrTickOutOfBounds          = errors.New("tick out of bounds")
	ErrTickMisaligned           = errors.New("tick not aligned to spacing")
	ErrTickLiquidityOverflow    = errors.New("tick liquidity gross overflow")
	ErrLiquidityUnderflow       = errors.New("liquidity underflow")
	ErrLiquidityOverflow        = errors.New("liquidity overflow")
	ErrLiquidityNetOverflow     = errors.New("tick liquidity net out of int128 range")
	ErrPositionNotFound         = errors.New("cannot poke a position with no liquidity")
	ErrSwapAmountZero           = errors.New("swap amount cannot be zero")
	ErrPriceLimitAlreadyReached = errors.New("price limit already exceeded")
	ErrPriceLimitOutOfBounds    = errors.New("price limit out of bounds")
	ErrNoLiquidityToReceiveFees = errors.New("no liquidity to receive donation")
	ErrProtocolFeeTooLarge      = errors.New("protocol fee too large")
	ErrLPFeeTooLarge            = errors.New("lp fee too large")
	ErrInvalidFeeForExactOut    = swapmath.ErrInvalidFeeForExactOut
)
