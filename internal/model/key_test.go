package model

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func testKey() PoolKey {
	return PoolKey{
		Currency0:   Currency(common.HexToAddress("0x1000000000000000000000000000000000000001")),
		Currency1:   Currency(common.HexToAddress("0x2000000000000000000000000000000000000002")),
		Fee:         3000,
		TickSpacing: 60,
	}
}

func TestPoolKeyValidate(t *testing.T) {
	if err := testKey().Validate(); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}

	swapped := testKey()
	swapped.Currency0, swapped.Currency1 = swapped.Currency1, swapped.Currency0
	if err := swapped.Validate(); !errors.Is(err, ErrCurrenciesOutOfOrder) {
		t.Fatalf("expected out-of-order, got %v", err)
	}

	equal := testKey()
	equal.Currency1 = equal.Currency0
	if err := equal.Validate(); !errors.Is(err, ErrCurrenciesOutOfOrder) {
		t.Fatalf("expected out-of-order for equal currencies, got %v", err)
	}

	narrow := testKey()
	narrow.TickSpacing = 0
	if err := narrow.Validate(); !errors.Is(err, ErrTickSpacingTooSmall) {
		t.Fatalf("expected spacing-too-small, got %v", err)
	}

	wide := testKey()
	wide.TickSpacing = MaxTickSpacing + 1
	if err := wide.Validate(); !errors.Is(err, ErrTickSpacingTooLarge) {
		t.Fatalf("expected spacing-too-large, got %v", err)
	}

	pricey := testKey()
	pricey.Fee = LPFeeMax + 1
	if err := pricey.Validate(); !errors.Is(err, ErrLPFeeTooLarge) {
		t.Fatalf("expected lp-fee-too-large, got %v", err)
	}
}

func TestPoolKeyDynamicFee(t *testing.T) {
	k := testKey()
	k.Fee = LPFeeDynamicFlag
	if !k.HasDynamicFee() {
		t.Fatalf("dynamic flag not detected")
	}
	if err := k.Validate(); err != nil {
		t.Fatalf("dynamic-fee key rejected: %v", err)
	}
	if k.StaticFee() != 0 {
		t.Fatalf("static fee of dynamic key = %d, want 0", k.StaticFee())
	}
}

func TestPoolIDDeterministic(t *testing.T) {
	a := testKey().ID()
	b := testKey().ID()
	if a != b {
		t.Fatalf("same key hashed to different ids: %s != %s", a, b)
	}
	other := testKey()
	other.Fee = 500
	if other.ID() == a {
		t.Fatalf("different keys hashed to the same id")
	}
}

func TestPriceFromSqrtX96(t *testing.T) {
	q96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	if got := PriceFromSqrtX96(q96); !got.Equal(PriceFromSqrtX96(q96)) || got.String() != "1" {
		t.Fatalf("price at 2^96 = %s, want 1", got)
	}
	double := new(uint256.Int).Lsh(q96, 1)
	if got := PriceFromSqrtX96(double); got.String() != "4" {
		t.Fatalf("price at 2*2^96 = %s, want 4", got)
	}
	if got := PriceFromSqrtX96(nil); !got.IsZero() {
		t.Fatalf("nil price = %s, want 0", got)
	}
}
