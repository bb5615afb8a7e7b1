package hooks

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/model"
	"liquidityCore/internal/pool"
)

type entry struct {
	hook        Hook
	permissions Permissions
}

// Dispatcher routes lifecycle callbacks to collaborators registered by
// address. An all-zero hook address on a pool key means no hook.
type Dispatcher struct {
	logger  *zap.Logger
	entries map[common.Address]entry
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:  logger,
		entries: make(map[common.Address]entry),
	}
}

// Register binds a collaborator and its permission record to an address.
// The record is validated once here and never re-derived.
func (d *Dispatcher) Register(addr common.Address, h Hook, permissions Permissions) error {
	if addr == (common.Address{}) {
		return ErrHookAddressInvalid
	}
	if !permissions.IsZero() && h == nil {
		return ErrHookAddressInvalid
	}
	if err := permissions.Validate(); err != nil {
		return err
	}
	d.entries[addr] = entry{hook: h, permissions: permissions}
	d.logger.Info("hook registered",
		zap.String("address", addr.Hex()),
		zap.Any("permissions", permissions))
	return nil
}

// Permissions returns the record registered for addr.
func (d *Dispatcher) Permissions(addr common.Address) (Permissions, bool) {
	e, ok := d.entries[addr]
	return e.permissions, ok
}

// ValidatePoolKey checks that the key's hook reference is either absent or
// registered.
func (d *Dispatcher) ValidatePoolKey(key model.PoolKey) error {
	if key.Hooks == (common.Address{}) {
		return nil
	}
	if _, ok := d.entries[key.Hooks]; !ok {
		return ErrHookAddressInvalid
	}
	return nil
}

func (d *Dispatcher) lookup(addr common.Address) (entry, bool) {
	if addr == (common.Address{}) {
		return entry{}, false
	}
	e, ok := d.entries[addr]
	if !ok || e.hook == nil {
		return entry{}, false
	}
	return e, true
}

func checkMarker(got, want Marker) error {
	if got != want {
		return fmt.Errorf("%w: got %x, want %x", ErrHookResponseInvalid, got, want)
	}
	return nil
}

func callFailed(point string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrHookCallFailed, point, err)
}

func (d *Dispatcher) BeforeInitialize(sender common.Address, key model.PoolKey, sqrtPriceX96 *uint256.Int) error {
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.BeforeInitialize {
		return nil
	}
	m, err := e.hook.BeforeInitialize(sender, key, sqrtPriceX96)
	if err != nil {
		return callFailed("beforeInitialize", err)
	}
	return checkMarker(m, MarkerBeforeInitialize)
}

func (d *Dispatcher) AfterInitialize(sender common.Address, key model.PoolKey, sqrtPriceX96 *uint256.Int, tick int32) error {
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.AfterInitialize {
		return nil
	}
	m, err := e.hook.AfterInitialize(sender, key, sqrtPriceX96, tick)
	if err != nil {
		return callFailed("afterInitialize", err)
	}
	return checkMarker(m, MarkerAfterInitialize)
}

// BeforeModifyLiquidity routes to the add or remove callback by delta sign.
func (d *Dispatcher) BeforeModifyLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams) error {
	e, ok := d.lookup(key.Hooks)
	if !ok {
		return nil
	}
	removing := params.LiquidityDelta.Sign() < 0
	if removing {
		if !e.permissions.BeforeRemoveLiquidity {
			return nil
		}
		m, err := e.hook.BeforeRemoveLiquidity(sender, key, params)
		if err != nil {
			return callFailed("beforeRemoveLiquidity", err)
		}
		return checkMarker(m, MarkerBeforeRemoveLiquidity)
	}
	if !e.permissions.BeforeAddLiquidity {
		return nil
	}
	m, err := e.hook.BeforeAddLiquidity(sender, key, params)
	if err != nil {
		return callFailed("beforeAddLiquidity", err)
	}
	return checkMarker(m, MarkerBeforeAddLiquidity)
}

// AfterModifyLiquidity returns the hook's delta adjustment, bounded
// componentwise by the caller's delta. Zero when the hook lacks the
// returns-delta capability.
func (d *Dispatcher) AfterModifyLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams, delta, feesAccrued model.BalanceDelta) (model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	e, ok := d.lookup(key.Hooks)
	if !ok {
		return zero, nil
	}
	removing := params.LiquidityDelta.Sign() < 0

	var (
		m         Marker
		want      Marker
		hookDelta model.BalanceDelta
		returns   bool
		err       error
	)
	if removing {
		if !e.permissions.AfterRemoveLiquidity {
			return zero, nil
		}
		want, returns = MarkerAfterRemoveLiquidity, e.permissions.AfterRemoveLiquidityReturnsDelta
		m, hookDelta, err = e.hook.AfterRemoveLiquidity(sender, key, params, delta, feesAccrued)
		if err != nil {
			return zero, callFailed("afterRemoveLiquidity", err)
		}
	} else {
		if !e.permissions.AfterAddLiquidity {
			return zero, nil
		}
		want, returns = MarkerAfterAddLiquidity, e.permissions.AfterAddLiquidityReturnsDelta
		m, hookDelta, err = e.hook.AfterAddLiquidity(sender, key, params, delta, feesAccrued)
		if err != nil {
			return zero, callFailed("afterAddLiquidity", err)
		}
	}
	if err := checkMarker(m, want); err != nil {
		return zero, err
	}
	if !returns {
		return zero, nil
	}
	if exceedsAbs(hookDelta.Amount0, delta.Amount0) || exceedsAbs(hookDelta.Amount1, delta.Amount1) {
		return zero, ErrHookDeltaExceedsSwapAmount
	}
	return hookDelta, nil
}

// BeforeSwap returns the hook's share of the specified amount and an
// optional LP fee override. The share is bounded by the specified amount.
func (d *Dispatcher) BeforeSwap(sender common.Address, key model.PoolKey, params pool.SwapParams) (BeforeSwapResult, error) {
	zero := BeforeSwapResult{DeltaSpecified: new(big.Int)}
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.BeforeSwap {
		return zero, nil
	}
	m, res, err := e.hook.BeforeSwap(sender, key, params)
	if err != nil {
		return zero, callFailed("beforeSwap", err)
	}
	if err := checkMarker(m, MarkerBeforeSwap); err != nil {
		return zero, err
	}
	if !e.permissions.BeforeSwapReturnsDelta {
		res.DeltaSpecified = new(big.Int)
	}
	if res.DeltaSpecified == nil {
		res.DeltaSpecified = new(big.Int)
	}
	if exceedsAbs(res.DeltaSpecified, params.AmountSpecified) {
		return zero, ErrHookDeltaExceedsSwapAmount
	}
	return res, nil
}

// AfterSwap returns the hook's share of the unspecified currency amount,
// bounded by what the swap produced in that currency.
func (d *Dispatcher) AfterSwap(sender common.Address, key model.PoolKey, params pool.SwapParams, delta model.BalanceDelta) (*big.Int, error) {
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.AfterSwap {
		return new(big.Int), nil
	}
	m, hookDelta, err := e.hook.AfterSwap(sender, key, params, delta)
	if err != nil {
		return nil, callFailed("afterSwap", err)
	}
	if err := checkMarker(m, MarkerAfterSwap); err != nil {
		return nil, err
	}
	if !e.permissions.AfterSwapReturnsDelta {
		return new(big.Int), nil
	}
	if hookDelta == nil {
		return new(big.Int), nil
	}
	exactInput := params.AmountSpecified.Sign() > 0
	unspecified := delta.Amount1
	if params.ZeroForOne != exactInput {
		unspecified = delta.Amount0
	}
	if exceedsAbs(hookDelta, unspecified) {
		return nil, ErrHookDeltaExceedsSwapAmount
	}
	return hookDelta, nil
}

func (d *Dispatcher) BeforeDonate(sender common.Address, key model.PoolKey, amount0, amount1 *uint256.Int) error {
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.BeforeDonate {
		return nil
	}
	m, err := e.hook.BeforeDonate(sender, key, amount0, amount1)
	if err != nil {
		return callFailed("beforeDonate", err)
	}
	return checkMarker(m, MarkerBeforeDonate)
}

func (d *Dispatcher) AfterDonate(sender common.Address, key model.PoolKey, amount0, amount1 *uint256.Int) error {
	e, ok := d.lookup(key.Hooks)
	if !ok || !e.permissions.AfterDonate {
		return nil
	}
	m, err := e.hook.AfterDonate(sender, key, amount0, amount1)
	if err != nil {
		return callFailed("afterDonate", err)
	}
	return checkMarker(m, MarkerAfterDonate)
}

func exceedsAbs(v, bound *big.Int) bool {
	if v == nil || v.Sign() == 0 {
		return false
	}
	return new(big.Int).Abs(v).Cmp(new(big.Int).Abs(bound)) > 0
}
