package engine

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
)

// ClaimLedger is the internal balance book for claim tokens: redeemable IOUs
// keyed by (owner, currency) that stand in for real asset movement during
// settlement.
type ClaimLedger struct {
	balances   map[common.Address]map[model.Currency]*uint256.Int
	allowances map[common.Address]map[common.Address]map[model.Currency]*uint256.Int
}

func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{
		balances:   make(map[common.Address]map[model.Currency]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]map[model.Currency]*uint256.Int),
	}
}

// BalanceOf returns the claim balance, zero for unknown pairs.
func (l *ClaimLedger) BalanceOf(owner common.Address, currency model.Currency) *uint256.Int {
	if acct, ok := l.balances[owner]; ok {
		if bal, ok := acct[currency]; ok {
			return new(uint256.Int).Set(bal)
		}
	}
	return new(uint256.Int)
}

func (l *ClaimLedger) credit(owner common.Address, currency model.Currency, amount *uint256.Int) {
	acct, ok := l.balances[owner]
	if !ok {
		acct = make(map[model.Currency]*uint256.Int)
		l.balances[owner] = acct
	}
	bal, ok := acct[currency]
	if !ok {
		bal = new(uint256.Int)
		acct[currency] = bal
	}
	bal.Add(bal, amount)
}

func (l *ClaimLedger) debit(owner common.Address, currency model.Currency, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	acct, ok := l.balances[owner]
	if !ok {
		return ErrInsufficientClaims
	}
	bal, ok := acct[currency]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientClaims
	}
	bal.Sub(bal, amount)
	if bal.IsZero() {
		delete(acct, currency)
		if len(acct) == 0 {
			delete(l.balances, owner)
		}
	}
	return nil
}

// Mint creates claim balance out of thin air; the engine calls this only
// against a matching ledger debt.
func (l *ClaimLedger) Mint(to common.Address, currency model.Currency, amount *uint256.Int) {
	l.credit(to, currency, amount)
}

// Burn destroys claim balance, failing when the owner holds less.
func (l *ClaimLedger) Burn(from common.Address, currency model.Currency, amount *uint256.Int) error {
	return l.debit(from, currency, amount)
}

// Transfer moves claim balance between owners.
func (l *ClaimLedger) Transfer(from, to common.Address, currency model.Currency, amount *uint256.Int) error {
	if err := l.debit(from, currency, amount); err != nil {
		return err
	}
	l.credit(to, currency, amount)
	return nil
}

// Approve lets spender move up to amount of owner's claim balance.
func (l *ClaimLedger) Approve(owner, spender common.Address, currency model.Currency, amount *uint256.Int) {
	perOwner, ok := l.allowances[owner]
	if !ok {
		perOwner = make(map[common.Address]map[model.Currency]*uint256.Int)
		l.allowances[owner] = perOwner
	}
	perSpender, ok := perOwner[spender]
	if !ok {
		perSpender = make(map[model.Currency]*uint256.Int)
		perOwner[spender] = perSpender
	}
	perSpender[currency] = new(uint256.Int).Set(amount)
}

// Allowance returns the remaining approved amount, zero when unset.
func (l *ClaimLedger) Allowance(owner, spender common.Address, currency model.Currency) *uint256.Int {
	if perOwner, ok := l.allowances[owner]; ok {
		if perSpender, ok := perOwner[spender]; ok {
			if a, ok := perSpender[currency]; ok {
				return new(uint256.Int).Set(a)
			}
		}
	}
	return new(uint256.Int)
}

// TransferFrom moves owner's claim balance on a spender's authority,
// consuming allowance.
func (l *ClaimLedger) TransferFrom(spender, from, to common.Address, currency model.Currency, amount *uint256.Int) error {
	allowance := l.Allowance(from, spender, currency)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientClaims
	}
	if err := l.Transfer(from, to, currency, amount); err != nil {
		return err
	}
	l.allowances[from][spender][currency] = allowance.Sub(allowance, amount)
	return nil
}
