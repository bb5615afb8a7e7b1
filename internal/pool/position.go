package pool

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

// Position is the per-owner liquidity record within one tick range.
type Position struct {
	Liquidity *uint256.Int
	// Snapshots of fee growth inside the range at the last update.
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
}

func newPosition() *Position {
	return &Position{
		Liquidity:                new(uint256.Int),
		FeeGrowthInside0LastX128: new(uint256.Int),
		FeeGrowthInside1LastX128: new(uint256.Int),
	}
}

// PositionKey identifies a position by owner, tick range, and salt.
func PositionKey(owner common.Address, tickLower, tickUpper int32, salt common.Hash) common.Hash {
	buf := make([]byte, 0, 20+4+4+32)
	buf = append(buf, owner.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(tickLower))
	buf = binary.BigEndian.AppendUint32(buf, uint32(tickUpper))
	buf = append(buf, salt.Bytes()...)
	return crypto.Keccak256Hash(buf)
}

// update applies a liquidity delta and settles fees accrued since the last
// snapshot. Returns the fees owed in each currency. Poking an empty position
// with a zero delta is an error.
func (p *Position) update(liquidityDelta *big.Int, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	liquidityBefore := p.Liquidity
	if liquidityDelta.Sign() == 0 {
		if liquidityBefore.IsZero() {
			return nil, nil, ErrPositionNotFound
		}
	} else {
		after, err := addLiquidityDelta(liquidityBefore, liquidityDelta)
		if err != nil {
			return nil, nil, err
		}
		p.Liquidity = after
	}

	// Fees accrue against the liquidity held before this update.
	growth0 := fullmath.WrappingSub(feeGrowthInside0X128, p.FeeGrowthInside0LastX128)
	growth1 := fullmath.WrappingSub(feeGrowthInside1X128, p.FeeGrowthInside1LastX128)
	feesOwed0, err := fullmath.MulDiv(growth0, liquidityBefore, fullmath.Q128)
	if err != nil {
		return nil, nil, err
	}
	feesOwed1, err := fullmath.MulDiv(growth1, liquidityBefore, fullmath.Q128)
	if err != nil {
		return nil, nil, err
	}

	p.FeeGrowthInside0LastX128 = new(uint256.Int).Set(feeGrowthInside0X128)
	p.FeeGrowthInside1LastX128 = new(uint256.Int).Set(feeGrowthInside1X128)
	return feesOwed0, feesOwed1, nil
}
