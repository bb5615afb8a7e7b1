package model

import "math/big"

// BalanceDelta is a signed pair of amounts from the pool's perspective:
// positive means owed to the pool, negative means owed by the pool.
type BalanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// NewBalanceDelta copies both amounts into a fresh delta.
func NewBalanceDelta(amount0, amount1 *big.Int) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
	}
}

// ZeroBalanceDelta returns a delta with both amounts zero.
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{Amount0: new(big.Int), Amount1: new(big.Int)}
}

// Add returns the component-wise sum.
func (d BalanceDelta) Add(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Add(d.Amount0, other.Amount0),
		Amount1: new(big.Int).Add(d.Amount1, other.Amount1),
	}
}

// Sub returns the component-wise difference.
func (d BalanceDelta) Sub(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Sub(d.Amount0, other.Amount0),
		Amount1: new(big.Int).Sub(d.Amount1, other.Amount1),
	}
}

// Neg returns the delta with both signs flipped.
func (d BalanceDelta) Neg() BalanceDelta {
	return BalanceDelta{
		Amount0: new(big.Int).Neg(d.Amount0),
		Amount1: new(big.Int).Neg(d.Amount1),
	}
}

// IsZero reports whether both amounts are zero.
func (d BalanceDelta) IsZero() bool {
	return d.Amount0.Sign() == 0 && d.Amount1.Sign() == 0
}
