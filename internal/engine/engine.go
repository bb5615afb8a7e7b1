// Package engine is the flash-accounting orchestrator: it owns every pool
// state machine, the single-session ledger of signed per-actor per-currency
// obligations, the claim-token ledger, and the settlement primitives that
// drive every obligation to zero before a session may close.
package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/hooks"
	"liquidityCore/internal/model"
	"liquidityCore/internal/pool"
)

// AssetBackend is the engine's single asset-movement primitive: transfer out
// of the engine's holdings and read balances.
type AssetBackend interface {
	Transfer(ctx context.Context, currency model.Currency, to common.Address, amount *uint256.Int) error
	Balance(ctx context.Context, currency model.Currency, owner common.Address) (*uint256.Int, error)
}

// ProtocolFeeController answers "what protocol fee applies to this pool".
// It is consulted best-effort at pool creation; failures degrade to no fee.
type ProtocolFeeController interface {
	ProtocolFeeForPool(key model.PoolKey) (uint32, error)
}

// EventSink receives lifecycle event records. Sink failures are logged and
// never abort an operation.
type EventSink interface {
	RecordEvent(ctx context.Context, rec model.EventRecord) error
}

// Options configures a new Engine.
type Options struct {
	// Address is the identity under which the backend holds engine funds.
	Address       common.Address
	Backend       AssetBackend
	Hooks         *hooks.Dispatcher
	FeeController ProtocolFeeController
	Sink          EventSink
	Logger        *zap.Logger
}

// Engine is not safe for concurrent use: execution is strictly sequential
// and the session lock guards against nested sessions, not goroutines.
type Engine struct {
	logger        *zap.Logger
	addr          common.Address
	backend       AssetBackend
	hooks         *hooks.Dispatcher
	claims        *ClaimLedger
	feeController ProtocolFeeController
	sink          EventSink
	seq           uint64

	pools        map[model.PoolID]*pool.Pool
	keys         map[model.PoolID]model.PoolKey
	protocolFees map[model.Currency]*uint256.Int

	session *Session
}

func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := opts.Hooks
	if dispatcher == nil {
		dispatcher = hooks.NewDispatcher(logger)
	}
	return &Engine{
		logger:        logger,
		addr:          opts.Address,
		backend:       opts.Backend,
		hooks:         dispatcher,
		claims:        NewClaimLedger(),
		feeController: opts.FeeController,
		sink:          opts.Sink,
		pools:         make(map[model.PoolID]*pool.Pool),
		keys:          make(map[model.PoolID]model.PoolKey),
		protocolFees:  make(map[model.Currency]*uint256.Int),
	}
}

// Hooks exposes the dispatcher for collaborator registration.
func (e *Engine) Hooks() *hooks.Dispatcher { return e.hooks }

// Claims exposes the claim-token ledger.
func (e *Engine) Claims() *ClaimLedger { return e.claims }

// Unlock opens the session, runs the callback, and enforces that every
// ledger entry returned to zero. The session ledger is discarded either way.
func (e *Engine) Unlock(ctx context.Context, caller common.Address, callback func(ctx context.Context, s *Session) error) error {
	if e.session != nil {
		return ErrSessionAlreadyOpen
	}
	e.session = newSession(caller)
	defer func() { e.session = nil }()

	if err := callback(ctx, e.session); err != nil {
		return err
	}
	if e.session.nonzero != 0 {
		return fmt.Errorf("%w: %d entries pending", ErrCurrencyNotSettled, e.session.nonzero)
	}
	return nil
}

func (e *Engine) requireSession() (*Session, error) {
	if e.session == nil {
		return nil, ErrSessionNotOpen
	}
	return e.session, nil
}

func (e *Engine) poolFor(key model.PoolKey) (*pool.Pool, model.PoolID, error) {
	id := key.ID()
	p, ok := e.pools[id]
	if !ok {
		return nil, id, pool.ErrNotInitialized
	}
	return p, id, nil
}

func (e *Engine) emit(ctx context.Context, name string, poolID model.PoolID, payload any) {
	e.seq++
	rec, err := model.NewEventRecord(e.seq, name, poolID.String(), payload)
	if err != nil {
		e.logger.Warn("encode event", zap.String("event", name), zap.Error(err))
		return
	}
	if e.sink == nil {
		return
	}
	if err := e.sink.RecordEvent(ctx, rec); err != nil {
		e.logger.Warn("event sink write failed", zap.String("event", name), zap.Error(err))
	}
}

// settleHookDelta resolves a hook's share immediately through the claims
// ledger: amounts the engine owes the hook become claim tokens, amounts the
// hook owes the engine burn them. A hook without enough claims to cover its
// debt aborts the operation.
func (e *Engine) settleHookDelta(key model.PoolKey, delta model.BalanceDelta) error {
	if err := e.settleHookComponent(key.Hooks, key.Currency0, delta.Amount0); err != nil {
		return err
	}
	return e.settleHookComponent(key.Hooks, key.Currency1, delta.Amount1)
}

func (e *Engine) settleHookComponent(hook common.Address, currency model.Currency, amount *big.Int) error {
	switch amount.Sign() {
	case 0:
		return nil
	case -1:
		owed, _ := uint256.FromBig(new(big.Int).Neg(amount))
		e.claims.Mint(hook, currency, owed)
		return nil
	default:
		debt, _ := uint256.FromBig(amount)
		return e.claims.Burn(hook, currency, debt)
	}
}

// queryProtocolFee asks the controller for the pool's fee. Any failure or
// invalid answer degrades to zero.
func (e *Engine) queryProtocolFee(key model.PoolKey) uint32 {
	if e.feeController == nil {
		return 0
	}
	fee, err := e.feeController.ProtocolFeeForPool(key)
	if err != nil {
		e.logger.Warn("protocol fee controller query failed", zap.Error(err))
		return 0
	}
	if err := pool.ValidateProtocolFee(fee); err != nil {
		e.logger.Warn("protocol fee controller returned invalid fee",
			zap.Uint32("fee", fee), zap.Error(err))
		return 0
	}
	return fee
}

// Initialize creates the pool for key at the given starting price. Dynamic
// fee pools start with a zero LP fee until the hook sets one.
func (e *Engine) Initialize(ctx context.Context, key model.PoolKey, sqrtPriceX96 *uint256.Int) (int32, error) {
	s, err := e.requireSession()
	if err != nil {
		return 0, err
	}
	if err := key.Validate(); err != nil {
		return 0, err
	}
	if err := e.hooks.ValidatePoolKey(key); err != nil {
		return 0, err
	}
	id := key.ID()
	if _, ok := e.pools[id]; ok {
		return 0, pool.ErrAlreadyInitialized
	}

	if err := e.hooks.BeforeInitialize(s.caller, key, sqrtPriceX96); err != nil {
		return 0, err
	}

	p := pool.New()
	tick, err := p.Initialize(sqrtPriceX96, e.queryProtocolFee(key), key.StaticFee())
	if err != nil {
		return 0, err
	}
	e.pools[id] = p
	e.keys[id] = key

	if err := e.hooks.AfterInitialize(s.caller, key, sqrtPriceX96, tick); err != nil {
		return 0, err
	}

	e.logger.Info("pool initialized",
		zap.String("pool", id.String()),
		zap.String("currency0", key.Currency0.String()),
		zap.String("currency1", key.Currency1.String()),
		zap.Int32("tick", tick))
	e.emit(ctx, model.EventInitialize, id, model.InitializeEventData{
		Currency0:    key.Currency0.String(),
		Currency1:    key.Currency1.String(),
		Fee:          key.Fee,
		TickSpacing:  key.TickSpacing,
		Hooks:        key.Hooks.Hex(),
		SqrtPriceX96: sqrtPriceX96.Dec(),
		Tick:         tick,
		Price:        model.PriceFromSqrtX96(sqrtPriceX96).String(),
	})
	return tick, nil
}

// ModifyLiquidityParams is the caller-facing parameter set; tick spacing and
// owner come from the pool key and session.
type ModifyLiquidityParams struct {
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
	Salt           common.Hash
}

// ModifyLiquidity changes the session caller's position and folds the
// resulting obligations into the session ledger.
func (e *Engine) ModifyLiquidity(ctx context.Context, key model.PoolKey, params ModifyLiquidityParams) (model.BalanceDelta, model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	s, err := e.requireSession()
	if err != nil {
		return zero, zero, err
	}
	p, id, err := e.poolFor(key)
	if err != nil {
		return zero, zero, err
	}

	poolParams := pool.ModifyLiquidityParams{
		Owner:          s.caller,
		TickLower:      params.TickLower,
		TickUpper:      params.TickUpper,
		LiquidityDelta: params.LiquidityDelta,
		TickSpacing:    key.TickSpacing,
		Salt:           params.Salt,
	}
	if err := e.hooks.BeforeModifyLiquidity(s.caller, key, poolParams); err != nil {
		return zero, zero, err
	}

	callerDelta, feesAccrued, err := p.ModifyLiquidity(poolParams)
	if err != nil {
		return zero, zero, err
	}

	hookDelta, err := e.hooks.AfterModifyLiquidity(s.caller, key, poolParams, callerDelta, feesAccrued)
	if err != nil {
		return zero, zero, err
	}
	if !hookDelta.IsZero() {
		callerDelta = callerDelta.Sub(hookDelta)
		if err := e.settleHookDelta(key, hookDelta); err != nil {
			return zero, zero, err
		}
	}
	s.accountBalanceDelta(s.caller, key, callerDelta)

	e.emit(ctx, model.EventModifyLiquidity, id, model.ModifyLiquidityEventData{
		Sender:         s.caller.Hex(),
		TickLower:      params.TickLower,
		TickUpper:      params.TickUpper,
		LiquidityDelta: params.LiquidityDelta.String(),
		Salt:           params.Salt.Hex(),
	})
	return callerDelta, feesAccrued, nil
}

// SwapParams is the caller-facing swap parameter set. AmountSpecified is
// positive for exact input, negative for exact output.
type SwapParams struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *uint256.Int
}

// Swap executes one swap, routing part of the amount to the hook when its
// before/after callbacks claim a share, and accrues the protocol-fee skim.
func (e *Engine) Swap(ctx context.Context, key model.PoolKey, params SwapParams) (model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	s, err := e.requireSession()
	if err != nil {
		return zero, err
	}
	p, id, err := e.poolFor(key)
	if err != nil {
		return zero, err
	}
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return zero, pool.ErrSwapAmountZero
	}

	poolParams := pool.SwapParams{
		TickSpacing:       key.TickSpacing,
		ZeroForOne:        params.ZeroForOne,
		AmountSpecified:   params.AmountSpecified,
		SqrtPriceLimitX96: params.SqrtPriceLimitX96,
	}
	before, err := e.hooks.BeforeSwap(s.caller, key, poolParams)
	if err != nil {
		return zero, err
	}
	if key.HasDynamicFee() {
		poolParams.LPFeeOverride = before.LPFeeOverride
	}
	poolParams.AmountSpecified = new(big.Int).Sub(params.AmountSpecified, before.DeltaSpecified)

	exactInput := params.AmountSpecified.Sign() > 0
	var result pool.SwapResult
	if poolParams.AmountSpecified.Sign() != 0 {
		result, err = p.Swap(poolParams)
		if err != nil {
			return zero, err
		}
	} else {
		// The hook consumed the entire specified amount; nothing for the
		// curve to do.
		result.Delta = model.ZeroBalanceDelta()
		result.AmountToProtocol = new(uint256.Int)
	}

	inputCurrency := key.Currency1
	if params.ZeroForOne {
		inputCurrency = key.Currency0
	}
	if !result.AmountToProtocol.IsZero() {
		accrued, ok := e.protocolFees[inputCurrency]
		if !ok {
			accrued = new(uint256.Int)
			e.protocolFees[inputCurrency] = accrued
		}
		accrued.Add(accrued, result.AmountToProtocol)
	}

	hookDeltaUnspecified, err := e.hooks.AfterSwap(s.caller, key, poolParams, result.Delta)
	if err != nil {
		return zero, err
	}

	// Rebuild the swapper's view: the hook's specified share still counts
	// against the swapper, and the hook's unspecified share comes out of
	// what the swapper receives. Both are mirrored onto the hook's ledger
	// entry so totals stay zero-sum.
	swapperDelta := result.Delta
	hookDelta := model.ZeroBalanceDelta()
	specifiedIs0 := params.ZeroForOne == exactInput
	if specifiedIs0 {
		swapperDelta = model.NewBalanceDelta(
			new(big.Int).Add(result.Delta.Amount0, before.DeltaSpecified),
			new(big.Int).Add(result.Delta.Amount1, hookDeltaUnspecified),
		)
		hookDelta = model.NewBalanceDelta(
			new(big.Int).Neg(before.DeltaSpecified),
			new(big.Int).Neg(hookDeltaUnspecified),
		)
	} else {
		swapperDelta = model.NewBalanceDelta(
			new(big.Int).Add(result.Delta.Amount0, hookDeltaUnspecified),
			new(big.Int).Add(result.Delta.Amount1, before.DeltaSpecified),
		)
		hookDelta = model.NewBalanceDelta(
			new(big.Int).Neg(hookDeltaUnspecified),
			new(big.Int).Neg(before.DeltaSpecified),
		)
	}
	if !hookDelta.IsZero() {
		if err := e.settleHookDelta(key, hookDelta); err != nil {
			return zero, err
		}
	}
	s.accountBalanceDelta(s.caller, key, swapperDelta)

	e.emit(ctx, model.EventSwap, id, model.SwapEventData{
		Sender:       s.caller.Hex(),
		Amount0:      swapperDelta.Amount0.String(),
		Amount1:      swapperDelta.Amount1.String(),
		SqrtPriceX96: p.SqrtPriceX96.Dec(),
		Liquidity:    p.Liquidity.Dec(),
		Tick:         p.Tick,
		Fee:          result.SwapFee,
		Price:        model.PriceFromSqrtX96(p.SqrtPriceX96).String(),
	})
	return swapperDelta, nil
}

// Donate pays directly into a pool's fee accumulators.
func (e *Engine) Donate(ctx context.Context, key model.PoolKey, amount0, amount1 *uint256.Int) (model.BalanceDelta, error) {
	zero := model.ZeroBalanceDelta()
	s, err := e.requireSession()
	if err != nil {
		return zero, err
	}
	p, id, err := e.poolFor(key)
	if err != nil {
		return zero, err
	}

	if err := e.hooks.BeforeDonate(s.caller, key, amount0, amount1); err != nil {
		return zero, err
	}
	delta, err := p.Donate(amount0, amount1)
	if err != nil {
		return zero, err
	}
	if err := e.hooks.AfterDonate(s.caller, key, amount0, amount1); err != nil {
		return zero, err
	}
	s.accountBalanceDelta(s.caller, key, delta)

	e.emit(ctx, model.EventDonate, id, model.DonateEventData{
		Sender:  s.caller.Hex(),
		Amount0: amount0.Dec(),
		Amount1: amount1.Dec(),
	})
	return delta, nil
}
