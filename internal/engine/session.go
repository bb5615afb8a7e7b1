package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
)

type deltaKey struct {
	actor    common.Address
	currency model.Currency
}

// Session is the ephemeral flash-accounting ledger for one unlocked call
// chain. It tracks signed per-(actor, currency) obligations, positive meaning
// owed to the engine, and the count of nonzero entries that must reach zero
// before the session may close. Discarded wholesale at session end.
type Session struct {
	caller  common.Address
	deltas  map[deltaKey]*big.Int
	nonzero int

	// Settlement-by-difference bookkeeping: the currency most recently
	// synced and the engine balance snapshotted at that point.
	syncedCurrency *model.Currency
	syncedReserve  *uint256.Int
}

func newSession(caller common.Address) *Session {
	return &Session{
		caller: caller,
		deltas: make(map[deltaKey]*big.Int),
	}
}

// Caller is the actor that opened the session.
func (s *Session) Caller() common.Address { return s.caller }

// Delta returns the current signed obligation for (actor, currency).
func (s *Session) Delta(actor common.Address, currency model.Currency) *big.Int {
	if d, ok := s.deltas[deltaKey{actor, currency}]; ok {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

// NonzeroDeltaCount is the number of unsettled (actor, currency) entries.
func (s *Session) NonzeroDeltaCount() int { return s.nonzero }

// accountDelta folds a signed amount into the ledger entry for
// (actor, currency), maintaining the nonzero count on zero transitions.
// Every operation's resulting delta passes through here.
func (s *Session) accountDelta(actor common.Address, currency model.Currency, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	key := deltaKey{actor, currency}
	current, ok := s.deltas[key]
	if !ok {
		current = new(big.Int)
		s.deltas[key] = current
	}
	wasZero := current.Sign() == 0
	current.Add(current, amount)
	isZero := current.Sign() == 0
	switch {
	case wasZero && !isZero:
		s.nonzero++
	case !wasZero && isZero:
		s.nonzero--
	}
}

// accountBalanceDelta folds a pool-operation BalanceDelta for both of a
// key's currencies.
func (s *Session) accountBalanceDelta(actor common.Address, key model.PoolKey, delta model.BalanceDelta) {
	s.accountDelta(actor, key.Currency0, delta.Amount0)
	s.accountDelta(actor, key.Currency1, delta.Amount1)
}
