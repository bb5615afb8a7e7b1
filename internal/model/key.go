package model

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Currency identifies an asset. The zero value is the native asset.
type Currency common.Address

// NativeCurrency is the chain-native asset.
var NativeCurrency = Currency{}

// IsNative reports whether the currency is the native asset.
func (c Currency) IsNative() bool {
	return c == Currency{}
}

func (c Currency) String() string {
	return common.Address(c).Hex()
}

// Less orders currencies by their byte representation.
func (c Currency) Less(other Currency) bool {
	return common.Address(c).Cmp(common.Address(other)) < 0
}

// MarshalText renders the currency as a hex address for JSON records.
func (c Currency) MarshalText() ([]byte, error) {
	return common.Address(c).MarshalText()
}

func (c *Currency) UnmarshalText(text []byte) error {
	return (*common.Address)(c).UnmarshalText(text)
}

// PoolID uniquely identifies a pool; it is a hash of the pool key's fields.
type PoolID common.Hash

func (id PoolID) String() string {
	return common.Hash(id).Hex()
}

func (id PoolID) MarshalText() ([]byte, error) {
	return common.Hash(id).MarshalText()
}

func (id *PoolID) UnmarshalText(text []byte) error {
	return (*common.Hash)(id).UnmarshalText(text)
}

// LP fee flag bits. The top bit of the 24-bit fee field marks a dynamic fee;
// the next bit marks a per-swap override supplied by a hook.
const (
	LPFeeDynamicFlag  uint32 = 0x800000
	LPFeeOverrideFlag uint32 = 0x400000
	LPFeeMax          uint32 = 1_000_000
)

// MaxTickSpacing and MinTickSpacing bound pool tick spacings.
const (
	MinTickSpacing int32 = 1
	MaxTickSpacing int32 = 32767
)

var (
	ErrCurrenciesOutOfOrder = errors.New("currencies out of order or equal")
	ErrTickSpacingTooSmall  = errors.New("tick spacing too small")
	ErrTickSpacingTooLarge  = errors.New("tick spacing too large")
	ErrLPFeeTooLarge        = errors.New("lp fee too large")
)

// PoolKey identifies a pool by its two ordered currencies, fee, tick spacing
// and hook collaborator.
type PoolKey struct {
	Currency0   Currency       `json:"currency0"`
	Currency1   Currency       `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	Hooks       common.Address `json:"hooks"`
}

// Validate checks the structural invariants of the key.
func (k PoolKey) Validate() error {
	if !k.Currency0.Less(k.Currency1) {
		return ErrCurrenciesOutOfOrder
	}
	if k.TickSpacing < MinTickSpacing {
		return ErrTickSpacingTooSmall
	}
	if k.TickSpacing > MaxTickSpacing {
		return ErrTickSpacingTooLarge
	}
	if !k.HasDynamicFee() && k.Fee > LPFeeMax {
		return ErrLPFeeTooLarge
	}
	return nil
}

// HasDynamicFee reports whether the key's fee field carries the dynamic flag.
func (k PoolKey) HasDynamicFee() bool {
	return k.Fee&LPFeeDynamicFlag != 0
}

// StaticFee returns the LP fee for pools without a dynamic fee.
func (k PoolKey) StaticFee() uint32 {
	return k.Fee &^ (LPFeeDynamicFlag | LPFeeOverrideFlag)
}

// ID returns the deterministic hash of the key's five fields.
func (k PoolKey) ID() PoolID {
	buf := make([]byte, 0, 20+20+4+4+20)
	buf = append(buf, k.Currency0[:]...)
	buf = append(buf, k.Currency1[:]...)
	buf = binary.BigEndian.AppendUint32(buf, k.Fee)
	buf = binary.BigEndian.AppendUint32(buf, uint32(k.TickSpacing))
	buf = append(buf, k.Hooks[:]...)
	return PoolID(crypto.Keccak256Hash(buf))
}
