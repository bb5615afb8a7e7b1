package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/model"
)

// Sync snapshots the engine's held balance of a non-native currency so a
// following Settle can measure the transfer-in by difference. Syncing the
// native currency clears the snapshot; native settlement carries its value
// explicitly.
func (e *Engine) Sync(ctx context.Context, currency model.Currency) error {
	s, err := e.requireSession()
	if err != nil {
		return err
	}
	if currency.IsNative() {
		s.syncedCurrency = nil
		s.syncedReserve = nil
		return nil
	}
	balance, err := e.backend.Balance(ctx, currency, e.addr)
	if err != nil {
		return fmt.Errorf("sync %s: %w", currency, err)
	}
	s.syncedCurrency = &currency
	s.syncedReserve = balance
	return nil
}

// Settle credits the session caller with the amount paid in: the supplied
// value for the native currency, or the balance growth since the last Sync
// for a synced currency.
func (e *Engine) Settle(ctx context.Context, value *uint256.Int) (*uint256.Int, error) {
	s, err := e.requireSession()
	if err != nil {
		return nil, err
	}
	return e.settle(ctx, s, s.caller, value)
}

// SettleFor is Settle with the credit applied to another actor's ledger
// entry, letting one actor pay another's debt.
func (e *Engine) SettleFor(ctx context.Context, recipient common.Address, value *uint256.Int) (*uint256.Int, error) {
	s, err := e.requireSession()
	if err != nil {
		return nil, err
	}
	return e.settle(ctx, s, recipient, value)
}

func (e *Engine) settle(ctx context.Context, s *Session, recipient common.Address, value *uint256.Int) (*uint256.Int, error) {
	if s.syncedCurrency == nil {
		amount := new(uint256.Int)
		if value != nil {
			amount.Set(value)
		}
		s.accountDelta(recipient, model.NativeCurrency, new(big.Int).Neg(amount.ToBig()))
		return amount, nil
	}
	if value != nil && !value.IsZero() {
		return nil, ErrNativeValueMismatch
	}
	currency := *s.syncedCurrency
	balance, err := e.backend.Balance(ctx, currency, e.addr)
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", currency, err)
	}
	amount := new(uint256.Int).Sub(balance, s.syncedReserve)
	s.syncedCurrency = nil
	s.syncedReserve = nil
	s.accountDelta(recipient, currency, new(big.Int).Neg(amount.ToBig()))
	return amount, nil
}

// Take transfers amount of currency out to `to` and debits the session
// caller by the same amount.
func (e *Engine) Take(ctx context.Context, currency model.Currency, to common.Address, amount *uint256.Int) error {
	s, err := e.requireSession()
	if err != nil {
		return err
	}
	s.accountDelta(s.caller, currency, amount.ToBig())
	if err := e.backend.Transfer(ctx, currency, to, amount); err != nil {
		return fmt.Errorf("take %s: %w", currency, err)
	}
	return nil
}

// Mint issues claim tokens instead of a real transfer out; the caller's
// ledger entry is debited exactly as Take would.
func (e *Engine) Mint(to common.Address, currency model.Currency, amount *uint256.Int) error {
	s, err := e.requireSession()
	if err != nil {
		return err
	}
	s.accountDelta(s.caller, currency, amount.ToBig())
	e.claims.Mint(to, currency, amount)
	return nil
}

// Burn redeems claim tokens instead of a real transfer in; the caller's
// ledger entry is credited exactly as Settle would.
func (e *Engine) Burn(from common.Address, currency model.Currency, amount *uint256.Int) error {
	s, err := e.requireSession()
	if err != nil {
		return err
	}
	if err := e.claims.Burn(from, currency, amount); err != nil {
		return err
	}
	s.accountDelta(s.caller, currency, new(big.Int).Neg(amount.ToBig()))
	return nil
}

// SetProtocolFeeController swaps the best-effort fee controller.
func (e *Engine) SetProtocolFeeController(ctx context.Context, controller ProtocolFeeController, ref common.Address) {
	e.feeController = controller
	e.logger.Info("protocol fee controller updated", zap.String("controller", ref.Hex()))
	e.emit(ctx, model.EventProtocolFeeControllerUpdated, model.PoolID{}, model.ProtocolFeeControllerUpdatedEventData{
		Controller: ref.Hex(),
	})
}

// SetProtocolFee replaces a pool's packed protocol fee.
func (e *Engine) SetProtocolFee(ctx context.Context, key model.PoolKey, fee uint32) error {
	p, id, err := e.poolFor(key)
	if err != nil {
		return err
	}
	if err := p.SetProtocolFee(fee); err != nil {
		return err
	}
	e.emit(ctx, model.EventProtocolFeeUpdated, id, model.ProtocolFeeUpdatedEventData{ProtocolFee: fee})
	return nil
}

// SetLPFee updates the stored LP fee of a dynamic-fee pool.
func (e *Engine) SetLPFee(key model.PoolKey, fee uint32) error {
	if !key.HasDynamicFee() {
		return ErrPoolNotDynamic
	}
	p, _, err := e.poolFor(key)
	if err != nil {
		return err
	}
	return p.SetLPFee(fee)
}

// ProtocolFeesAccrued reports the undistributed protocol fee balance.
func (e *Engine) ProtocolFeesAccrued(currency model.Currency) *uint256.Int {
	if accrued, ok := e.protocolFees[currency]; ok {
		return new(uint256.Int).Set(accrued)
	}
	return new(uint256.Int)
}

// CollectProtocolFees pays accrued protocol fees out through the backend.
// A nil or zero amount collects the full accrued balance.
func (e *Engine) CollectProtocolFees(ctx context.Context, currency model.Currency, to common.Address, amount *uint256.Int) (*uint256.Int, error) {
	accrued, ok := e.protocolFees[currency]
	if !ok {
		accrued = new(uint256.Int)
	}
	collect := new(uint256.Int).Set(accrued)
	if amount != nil && !amount.IsZero() {
		collect.Set(amount)
	}
	if collect.Cmp(accrued) > 0 {
		return nil, ErrCollectExceedsAccrued
	}
	if collect.IsZero() {
		return collect, nil
	}
	accrued.Sub(accrued, collect)
	if err := e.backend.Transfer(ctx, currency, to, collect); err != nil {
		return nil, fmt.Errorf("collect protocol fees: %w", err)
	}
	return collect, nil
}
