// Package fullmath provides overflow-safe 256-bit fixed-point arithmetic.
//
// All helpers operate on unsigned 256-bit integers and compute through a
// 512-bit intermediate product, so a*b may exceed 2^256 as long as the final
// quotient fits.
package fullmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("mul-div overflow")
)

// Fixed-point constants shared across the price and fee math.
var (
	Q96        = uint256.MustFromHex("0x1000000000000000000000000")
	Q128       = uint256.MustFromHex("0x100000000000000000000000000000000")
	MaxUint128 = uint256.MustFromHex("0xffffffffffffffffffffffffffffffff")
	MaxUint160 = uint256.MustFromHex("0xffffffffffffffffffffffffffffffffffffffff")
)

// MulDiv returns floor(a*b/d) computed with full 512-bit precision.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivRoundingUp returns ceil(a*b/d) computed with full 512-bit precision.
func MulDivRoundingUp(a, b, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, d)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, d)
	if !rem.IsZero() {
		var carry bool
		if _, carry = z.AddOverflow(z, uint256.NewInt(1)); carry {
			return nil, ErrOverflow
		}
	}
	return z, nil
}

// DivRoundingUp returns ceil(a/d).
func DivRoundingUp(a, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, rem := new(uint256.Int).DivMod(a, d, new(uint256.Int))
	if !rem.IsZero() {
		z.Add(z, uint256.NewInt(1))
	}
	return z, nil
}

// WrappingSub returns a-b modulo 2^256. Fee-growth accumulators are ring
// counters, so differencing them must wrap rather than saturate.
func WrappingSub(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(a, b)
}

// WrappingAdd returns a+b modulo 2^256.
func WrappingAdd(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(a, b)
}
