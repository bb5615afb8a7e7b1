package replay

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/model"
)

// ErrInsufficientVaultBalance is returned when a transfer out exceeds the
// engine's holdings.
var ErrInsufficientVaultBalance = errors.New("insufficient vault balance")

// Vault is an in-memory asset backend. The replay runner funds it on demand
// so every obligation in the op stream can be settled.
type Vault struct {
	balances map[model.Currency]map[common.Address]*uint256.Int
	owner    common.Address
}

func NewVault(owner common.Address) *Vault {
	return &Vault{
		balances: make(map[model.Currency]map[common.Address]*uint256.Int),
		owner:    owner,
	}
}

func (v *Vault) balance(currency model.Currency, who common.Address) *uint256.Int {
	if per, ok := v.balances[currency]; ok {
		if b, ok := per[who]; ok {
			return b
		}
	}
	return new(uint256.Int)
}

// Deposit credits an account directly, bypassing transfer accounting.
func (v *Vault) Deposit(currency model.Currency, who common.Address, amount *uint256.Int) {
	per, ok := v.balances[currency]
	if !ok {
		per = make(map[common.Address]*uint256.Int)
		v.balances[currency] = per
	}
	b, ok := per[who]
	if !ok {
		b = new(uint256.Int)
		per[who] = b
	}
	b.Add(b, amount)
}

// Transfer moves amount from the vault owner's holdings to another account.
func (v *Vault) Transfer(_ context.Context, currency model.Currency, to common.Address, amount *uint256.Int) error {
	from := v.balance(currency, v.owner)
	if from.Cmp(amount) < 0 {
		return ErrInsufficientVaultBalance
	}
	from.Sub(from, amount)
	v.Deposit(currency, to, amount)
	return nil
}

func (v *Vault) Balance(_ context.Context, currency model.Currency, who common.Address) (*uint256.Int, error) {
	return new(uint256.Int).Set(v.balance(currency, who)), nil
}
