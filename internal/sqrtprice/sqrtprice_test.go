package sqrtprice

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
)

var (
	priceOne = new(uint256.Int).Set(fullmath.Q96)       // tick 0
	priceTwo = new(uint256.Int).Lsh(fullmath.Q96, 1)    // price 4 (sqrt = 2)
	oneEth   = uint256.MustFromDecimal("1000000000000000000")
)

func TestAmount0DeltaRounding(t *testing.T) {
	up, err := Amount0Delta(priceOne, priceTwo, oneEth, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	down, err := Amount0Delta(priceOne, priceTwo, oneEth, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.Cmp(down) < 0 {
		t.Fatalf("round up %s < round down %s", up, down)
	}
	diff := new(uint256.Int).Sub(up, down)
	if diff.Cmp(uint256.NewInt(1)) > 0 {
		t.Fatalf("rounding modes differ by %s, want at most 1", diff)
	}
	// L * (1/sqrt(1) - 1/sqrt(4)) = 1e18 * (1 - 0.5) = 5e17
	want := uint256.MustFromDecimal("500000000000000000")
	if !down.Eq(want) {
		t.Fatalf("amount0 = %s, want %s", down, want)
	}
}

func TestAmount1Delta(t *testing.T) {
	got, err := Amount1Delta(priceOne, priceTwo, oneEth, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// L * (sqrt(4) - sqrt(1)) = 1e18
	if !got.Eq(oneEth) {
		t.Fatalf("amount1 = %s, want 1e18", got)
	}
}

func TestAmountDeltaArgumentOrder(t *testing.T) {
	a, err := Amount1Delta(priceOne, priceTwo, oneEth, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Amount1Delta(priceTwo, priceOne, oneEth, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Eq(b) {
		t.Fatalf("delta should not depend on argument order: %s != %s", a, b)
	}
}

func TestNextSqrtPriceFromInputZeroAmount(t *testing.T) {
	next, err := NextSqrtPriceFromInput(priceOne, oneEth, uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Eq(priceOne) {
		t.Fatalf("zero input moved price to %s", next)
	}
}

func TestNextSqrtPriceFromInputDirection(t *testing.T) {
	in := uint256.MustFromDecimal("100000000000000000")

	down, err := NextSqrtPriceFromInput(priceOne, oneEth, in, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if down.Cmp(priceOne) >= 0 {
		t.Fatalf("zero-for-one input must lower the price, got %s", down)
	}

	upward, err := NextSqrtPriceFromInput(priceOne, oneEth, in, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upward.Cmp(priceOne) <= 0 {
		t.Fatalf("one-for-zero input must raise the price, got %s", upward)
	}
}

func TestNextSqrtPriceFromOutputInsufficient(t *testing.T) {
	// Demanding more asset1 than the range holds must fail.
	out := uint256.MustFromDecimal("2000000000000000000")
	if _, err := NextSqrtPriceFromOutput(priceOne, oneEth, out, true); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestNextSqrtPriceInputOutputConsistency(t *testing.T) {
	in := uint256.MustFromDecimal("123456789012345678")
	next, err := NextSqrtPriceFromInput(priceOne, oneEth, in, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The amount0 required to move between the two prices never exceeds the
	// amount spent.
	required, err := Amount0Delta(next, priceOne, oneEth, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if required.Cmp(in) > 0 {
		t.Fatalf("required %s exceeds spent %s", required, in)
	}
}

func TestNextSqrtPriceValidation(t *testing.T) {
	if _, err := NextSqrtPriceFromInput(uint256.NewInt(0), oneEth, oneEth, true); !errors.Is(err, ErrPriceZero) {
		t.Fatalf("expected price-zero error, got %v", err)
	}
	if _, err := NextSqrtPriceFromInput(priceOne, uint256.NewInt(0), oneEth, true); !errors.Is(err, ErrLiquidityZero) {
		t.Fatalf("expected liquidity-zero error, got %v", err)
	}
}
