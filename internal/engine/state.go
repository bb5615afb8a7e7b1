package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
	"liquidityCore/internal/pool"
)

// Raw-state read accessors for off-chain introspection. Pass-throughs over
// pool state, no business logic; returned values are copies.

// Slot0 is the packed pricing slot of one pool.
type Slot0 struct {
	SqrtPriceX96 *uint256.Int
	Tick         int32
	ProtocolFee  uint32
	LPFee        uint32
}

func (e *Engine) poolByID(id model.PoolID) (*pool.Pool, error) {
	p, ok := e.pools[id]
	if !ok {
		return nil, pool.ErrNotInitialized
	}
	return p, nil
}

// PoolKeyFor looks up the key a pool was created with.
func (e *Engine) PoolKeyFor(id model.PoolID) (model.PoolKey, bool) {
	key, ok := e.keys[id]
	return key, ok
}

func (e *Engine) GetSlot0(id model.PoolID) (Slot0, error) {
	p, err := e.poolByID(id)
	if err != nil {
		return Slot0{}, err
	}
	return Slot0{
		SqrtPriceX96: new(uint256.Int).Set(p.SqrtPriceX96),
		Tick:         p.Tick,
		ProtocolFee:  p.ProtocolFee,
		LPFee:        p.LPFee,
	}, nil
}

func (e *Engine) GetLiquidity(id model.PoolID) (*uint256.Int, error) {
	p, err := e.poolByID(id)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(p.Liquidity), nil
}

func (e *Engine) GetFeeGrowthGlobals(id model.PoolID) (*uint256.Int, *uint256.Int, error) {
	p, err := e.poolByID(id)
	if err != nil {
		return nil, nil, err
	}
	return new(uint256.Int).Set(p.FeeGrowthGlobal0X128), new(uint256.Int).Set(p.FeeGrowthGlobal1X128), nil
}

func (e *Engine) GetTickInfo(id model.PoolID, tick int32) (pool.TickInfo, bool, error) {
	p, err := e.poolByID(id)
	if err != nil {
		return pool.TickInfo{}, false, err
	}
	info, ok := p.Ticks[tick]
	if !ok {
		return pool.TickInfo{}, false, nil
	}
	return pool.TickInfo{
		LiquidityGross:        new(uint256.Int).Set(info.LiquidityGross),
		LiquidityNet:          new(big.Int).Set(info.LiquidityNet),
		FeeGrowthOutside0X128: new(uint256.Int).Set(info.FeeGrowthOutside0X128),
		FeeGrowthOutside1X128: new(uint256.Int).Set(info.FeeGrowthOutside1X128),
	}, true, nil
}

func (e *Engine) GetPosition(id model.PoolID, owner common.Address, tickLower, tickUpper int32, salt common.Hash) (pool.Position, bool, error) {
	p, err := e.poolByID(id)
	if err != nil {
		return pool.Position{}, false, err
	}
	pos, ok := p.Positions[pool.PositionKey(owner, tickLower, tickUpper, salt)]
	if !ok {
		return pool.Position{}, false, nil
	}
	return pool.Position{
		Liquidity:                new(uint256.Int).Set(pos.Liquidity),
		FeeGrowthInside0LastX128: new(uint256.Int).Set(pos.FeeGrowthInside0LastX128),
		FeeGrowthInside1LastX128: new(uint256.Int).Set(pos.FeeGrowthInside1LastX128),
	}, true, nil
}
