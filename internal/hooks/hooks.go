// Package hooks dispatches pool lifecycle callbacks to registered
// collaborators. Each collaborator carries an immutable permission record
// fixed at registration; calls for unset permissions are skipped entirely.
package hooks

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
	"liquidityCore/internal/pool"
)

// Marker is the four-byte response prefix a hook must echo back from every
// callback, derived from the callback name. A wrong marker means the
// collaborator misrouted the call.
type Marker [4]byte

func markerFor(name string) Marker {
	var m Marker
	copy(m[:], crypto.Keccak256([]byte(name))[:4])
	return m
}

var (
	MarkerBeforeInitialize      = markerFor("beforeInitialize")
	MarkerAfterInitialize       = markerFor("afterInitialize")
	MarkerBeforeAddLiquidity    = markerFor("beforeAddLiquidity")
	MarkerAfterAddLiquidity     = markerFor("afterAddLiquidity")
	MarkerBeforeRemoveLiquidity = markerFor("beforeRemoveLiquidity")
	MarkerAfterRemoveLiquidity  = markerFor("afterRemoveLiquidity")
	MarkerBeforeSwap            = markerFor("beforeSwap")
	MarkerAfterSwap             = markerFor("afterSwap")
	MarkerBeforeDonate          = markerFor("beforeDonate")
	MarkerAfterDonate           = markerFor("afterDonate")
)

// Permissions is the capability record fixed at registration time: one bit
// per lifecycle point plus four bits for callbacks allowed to return a delta
// adjustment.
type Permissions struct {
	BeforeInitialize      bool `json:"beforeInitialize"`
	AfterInitialize       bool `json:"afterInitialize"`
	BeforeAddLiquidity    bool `json:"beforeAddLiquidity"`
	AfterAddLiquidity     bool `json:"afterAddLiquidity"`
	BeforeRemoveLiquidity bool `json:"beforeRemoveLiquidity"`
	AfterRemoveLiquidity  bool `json:"afterRemoveLiquidity"`
	BeforeSwap            bool `json:"beforeSwap"`
	AfterSwap             bool `json:"afterSwap"`
	BeforeDonate          bool `json:"beforeDonate"`
	AfterDonate           bool `json:"afterDonate"`

	BeforeSwapReturnsDelta           bool `json:"beforeSwapReturnsDelta"`
	AfterSwapReturnsDelta            bool `json:"afterSwapReturnsDelta"`
	AfterAddLiquidityReturnsDelta    bool `json:"afterAddLiquidityReturnsDelta"`
	AfterRemoveLiquidityReturnsDelta bool `json:"afterRemoveLiquidityReturnsDelta"`
}

// IsZero reports whether no capability is set.
func (p Permissions) IsZero() bool {
	return p == Permissions{}
}

// Validate checks internal consistency: a returns-delta capability requires
// its base callback capability.
func (p Permissions) Validate() error {
	switch {
	case p.BeforeSwapReturnsDelta && !p.BeforeSwap,
		p.AfterSwapReturnsDelta && !p.AfterSwap,
		p.AfterAddLiquidityReturnsDelta && !p.AfterAddLiquidity,
		p.AfterRemoveLiquidityReturnsDelta && !p.AfterRemoveLiquidity:
		return ErrHookPermissionsInvalid
	}
	return nil
}

// BeforeSwapResult is what a before-swap hook may return: a portion of the
// specified amount the hook takes for itself, and an optional LP fee
// override carrying the override flag.
type BeforeSwapResult struct {
	DeltaSpecified *big.Int
	LPFeeOverride  uint32
}

// Hook is the collaborator interface. Every callback returns its marker;
// implementations usually embed NoopHook and override what they need.
type Hook interface {
	BeforeInitialize(sender common.Address, key model.PoolKey, sqrtPriceX96 *uint256.Int) (Marker, error)
	AfterInitialize(sender common.Address, key model.PoolKey, sqrtPriceX96 *uint256.Int, tick int32) (Marker, error)

	BeforeAddLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams) (Marker, error)
	AfterAddLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams, delta, feesAccrued model.BalanceDelta) (Marker, model.BalanceDelta, error)
	BeforeRemoveLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams) (Marker, error)
	AfterRemoveLiquidity(sender common.Address, key model.PoolKey, params pool.ModifyLiquidityParams, delta, feesAccrued model.BalanceDelta) (Marker, model.BalanceDelta, error)

	BeforeSwap(sender common.Address, key model.PoolKey, params pool.SwapParams) (Marker, BeforeSwapResult, error)
	AfterSwap(sender common.Address, key model.PoolKey, params pool.SwapParams, delta model.BalanceDelta) (Marker, *big.Int, error)

	BeforeDonate(sender common.Address, key model.PoolKey, amount0, amount1 *uint256.Int) (Marker, error)
	AfterDonate(sender common.Address, key model.PoolKey, amount0, amount1 *uint256.Int) (Marker, error)
}

// NoopHook implements every callback as a marker-returning no-op.
type NoopHook struct{}

func (NoopHook) BeforeInitialize(common.Address, model.PoolKey, *uint256.Int) (Marker, error) {
	return MarkerBeforeInitialize, nil
}

func (NoopHook) AfterInitialize(common.Address, model.PoolKey, *uint256.Int, int32) (Marker, error) {
	return MarkerAfterInitialize, nil
}

func (NoopHook) BeforeAddLiquidity(common.Address, model.PoolKey, pool.ModifyLiquidityParams) (Marker, error) {
	return MarkerBeforeAddLiquidity, nil
}

func (NoopHook) AfterAddLiquidity(common.Address, model.PoolKey, pool.ModifyLiquidityParams, model.BalanceDelta, model.BalanceDelta) (Marker, model.BalanceDelta, error) {
	return MarkerAfterAddLiquidity, model.ZeroBalanceDelta(), nil
}

func (NoopHook) BeforeRemoveLiquidity(common.Address, model.PoolKey, pool.ModifyLiquidityParams) (Marker, error) {
	return MarkerBeforeRemoveLiquidity, nil
}

func (NoopHook) AfterRemoveLiquidity(common.Address, model.PoolKey, pool.ModifyLiquidityParams, model.BalanceDelta, model.BalanceDelta) (Marker, model.BalanceDelta, error) {
	return MarkerAfterRemoveLiquidity, model.ZeroBalanceDelta(), nil
}

func (NoopHook) BeforeSwap(common.Address, model.PoolKey, pool.SwapParams) (Marker, BeforeSwapResult, error) {
	return MarkerBeforeSwap, BeforeSwapResult{DeltaSpecified: new(big.Int)}, nil
}

func (NoopHook) AfterSwap(common.Address, model.PoolKey, pool.SwapParams, model.BalanceDelta) (Marker, *big.Int, error) {
	return MarkerAfterSwap, new(big.Int), nil
}

func (NoopHook) BeforeDonate(common.Address, model.PoolKey, *uint256.Int, *uint256.Int) (Marker, error) {
	return MarkerBeforeDonate, nil
}

func (NoopHook) AfterDonate(common.Address, model.PoolKey, *uint256.Int, *uint256.Int) (Marker, error) {
	return MarkerAfterDonate, nil
}
