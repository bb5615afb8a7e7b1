package pool

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityCore/internal/fullmath"
	"liquidityCore/internal/tickmath"
)

var testOwner = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func newInitializedPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	tick, err := p.Initialize(new(uint256.Int).Set(fullmath.Q96), 0, 3000)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if tick != 0 {
		t.Fatalf("initial tick = %d, want 0", tick)
	}
	return p
}

func addLiquidity(t *testing.T, p *Pool, tickLower, tickUpper int32, liquidity *big.Int) {
	t.Helper()
	_, _, err := p.ModifyLiquidity(ModifyLiquidityParams{
		Owner:          testOwner,
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		LiquidityDelta: liquidity,
		TickSpacing:    60,
	})
	if err != nil {
		t.Fatalf("modify liquidity [%d,%d] by %s: %v", tickLower, tickUpper, liquidity, err)
	}
}

func TestInitialize(t *testing.T) {
	p := newInitializedPool(t)
	if !p.IsInitialized() {
		t.Fatal("pool should be initialized")
	}
	if _, err := p.Initialize(new(uint256.Int).Set(fullmath.Q96), 0, 3000); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize: got %v, want %v", err, ErrAlreadyInitialized)
	}

	if _, err := New().Initialize(new(uint256.Int).Set(fullmath.Q96), 1001, 3000); !errors.Is(err, ErrProtocolFeeTooLarge) {
		t.Fatalf("protocol fee 1001: got %v, want %v", err, ErrProtocolFeeTooLarge)
	}
	if _, err := New().Initialize(new(uint256.Int).Set(fullmath.Q96), 0, 1_000_001); !errors.Is(err, ErrLPFeeTooLarge) {
		t.Fatalf("lp fee over max: got %v, want %v", err, ErrLPFeeTooLarge)
	}
}

func TestOperationsRequireInitialization(t *testing.T) {
	p := New()
	if _, _, err := p.ModifyLiquidity(ModifyLiquidityParams{
		TickLower: -60, TickUpper: 60, LiquidityDelta: big.NewInt(1), TickSpacing: 60,
	}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("modify liquidity: got %v, want %v", err, ErrNotInitialized)
	}
	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   big.NewInt(1),
		SqrtPriceLimitX96: new(uint256.Int).Set(tickmath.MinSqrtPrice),
	}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("swap: got %v, want %v", err, ErrNotInitialized)
	}
	if _, err := p.Donate(uint256.NewInt(1), uint256.NewInt(1)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("donate: got %v, want %v", err, ErrNotInitialized)
	}
}

func TestModifyLiquidityTickValidation(t *testing.T) {
	p := newInitializedPool(t)
	cases := []struct {
		name    string
		lower   int32
		upper   int32
		wantErr error
	}{
		{"misordered", 120, -120, ErrTicksMisordered},
		{"equal", 60, 60, ErrTicksMisordered},
		{"below min", tickmath.MinTick - 60, 60, ErrTickOutOfBounds},
		{"above max", -60, tickmath.MaxTick + 60, ErrTickOutOfBounds},
		{"misaligned lower", -61, 60, ErrTickMisaligned},
		{"misaligned upper", -60, 61, ErrTickMisaligned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := p.ModifyLiquidity(ModifyLiquidityParams{
				Owner: testOwner, TickLower: tc.lower, TickUpper: tc.upper,
				LiquidityDelta: big.NewInt(1), TickSpacing: 60,
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestModifyLiquidityPrincipalSigns(t *testing.T) {
	p := newInitializedPool(t)
	callerDelta, feesAccrued, err := p.ModifyLiquidity(ModifyLiquidityParams{
		Owner: testOwner, TickLower: -120, TickUpper: 120,
		LiquidityDelta: big.NewInt(1_000_000), TickSpacing: 60,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if callerDelta.Amount0.Sign() <= 0 || callerDelta.Amount1.Sign() <= 0 {
		t.Fatalf("in-range add should owe both currencies, got %s / %s", callerDelta.Amount0, callerDelta.Amount1)
	}
	if !feesAccrued.IsZero() {
		t.Fatalf("no fees yet, got %s / %s", feesAccrued.Amount0, feesAccrued.Amount1)
	}

	removed, _, err := p.ModifyLiquidity(ModifyLiquidityParams{
		Owner: testOwner, TickLower: -120, TickUpper: 120,
		LiquidityDelta: big.NewInt(-1_000_000), TickSpacing: 60,
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Amount0.Sign() > 0 || removed.Amount1.Sign() > 0 {
		t.Fatalf("remove should return funds, got %s / %s", removed.Amount0, removed.Amount1)
	}
	// Round-trip loses at most one unit per currency to rounding in the
	// pool's favor.
	net0 := new(big.Int).Add(callerDelta.Amount0, removed.Amount0)
	net1 := new(big.Int).Add(callerDelta.Amount1, removed.Amount1)
	if net0.Cmp(big.NewInt(0)) < 0 || net0.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("net amount0 after round trip = %s", net0)
	}
	if net1.Cmp(big.NewInt(0)) < 0 || net1.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("net amount1 after round trip = %s", net1)
	}
}

func TestLiquidityNetSumsToZero(t *testing.T) {
	p := newInitializedPool(t)
	addLiquidity(t, p, -120, 120, big.NewInt(1_000_000))
	addLiquidity(t, p, -600, -120, big.NewInt(2_500_000))
	addLiquidity(t, p, 60, 720, big.NewInt(700_000))
	addLiquidity(t, p, -120, 120, big.NewInt(-400_000))

	sum := new(big.Int)
	for _, info := range p.Ticks {
		sum.Add(sum, info.LiquidityNet)
	}
	if sum.Sign() != 0 {
		t.Fatalf("liquidityNet sum = %s, want 0", sum)
	}
}

func TestTickClearedWhenEmptied(t *testing.T) {
	p := newInitializedPool(t)
	addLiquidity(t, p, -120, 120, big.NewInt(1_000_000))
	if _, ok := p.Ticks[-120]; !ok {
		t.Fatal("tick -120 should be occupied")
	}
	addLiquidity(t, p, -120, 120, big.NewInt(-1_000_000))
	if _, ok := p.Ticks[-120]; ok {
		t.Fatal("tick -120 should be cleared")
	}
	if _, ok := p.Ticks[120]; ok {
		t.Fatal("tick 120 should be cleared")
	}
	if len(p.Positions) != 0 {
		t.Fatalf("positions remaining: %d", len(p.Positions))
	}
	// The bitmap bit must be cleared too: a swap down must run to the limit
	// without finding phantom liquidity.
	got, initialized := p.Bitmap.nextInitializedTickWithinOneWord(-1, 60, true)
	if initialized {
		t.Fatalf("found initialized tick %d in empty bitmap", got)
	}
}

func TestPokeNonexistentPosition(t *testing.T) {
	p := newInitializedPool(t)
	_, _, err := p.ModifyLiquidity(ModifyLiquidityParams{
		Owner: testOwner, TickLower: -120, TickUpper: 120,
		LiquidityDelta: big.NewInt(0), TickSpacing: 60,
	})
	if !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("got %v, want %v", err, ErrPositionNotFound)
	}
}

func TestSwapExactInputScenario(t *testing.T) {
	p := newInitializedPool(t)
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10) // 1e20
	addLiquidity(t, p, -120, 120, liquidity)

	amountIn, _ := new(big.Int).SetString("100000000000000000", 10) // 1e17
	limit := new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1)
	res, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   amountIn,
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if res.SwapFee != 3000 {
		t.Fatalf("swap fee = %d, want 3000", res.SwapFee)
	}
	if res.Delta.Amount0.Cmp(amountIn) != 0 {
		t.Fatalf("amount0 = %s, want full input %s", res.Delta.Amount0, amountIn)
	}
	if res.Delta.Amount1.Sign() >= 0 {
		t.Fatalf("amount1 = %s, want negative (paid out)", res.Delta.Amount1)
	}
	out := new(big.Int).Neg(res.Delta.Amount1)
	lo, _ := new(big.Int).SetString("99000000000000000", 10)  // 9.9e16
	hi, _ := new(big.Int).SetString("99700000000000000", 10)  // 9.97e16
	if out.Cmp(lo) < 0 || out.Cmp(hi) > 0 {
		t.Fatalf("output %s outside expected band [%s, %s]", out, lo, hi)
	}

	if p.Tick < -120 || p.Tick >= 0 {
		t.Fatalf("post-swap tick = %d, want within [-120, 0)", p.Tick)
	}
	if res.AmountToProtocol.Sign() != 0 {
		t.Fatalf("protocol fee = %s, want 0", res.AmountToProtocol)
	}

	// The price limit was not reached, so the LP fee is exactly 0.3% of the
	// input and the global accumulator reflects it against the full depth.
	feeWant := uint256.NewInt(300_000_000_000_000) // 3e14
	liq, _ := uint256.FromBig(liquidity)
	growthWant, err := fullmath.MulDiv(feeWant, fullmath.Q128, liq)
	if err != nil {
		t.Fatalf("expected growth: %v", err)
	}
	if !p.FeeGrowthGlobal0X128.Eq(growthWant) {
		t.Fatalf("feeGrowthGlobal0 = %s, want %s", p.FeeGrowthGlobal0X128, growthWant)
	}
	if !p.FeeGrowthGlobal1X128.IsZero() {
		t.Fatalf("feeGrowthGlobal1 = %s, want 0", p.FeeGrowthGlobal1X128)
	}
}

func TestSwapFeesAccrueToPosition(t *testing.T) {
	p := newInitializedPool(t)
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	addLiquidity(t, p, -120, 120, liquidity)

	amountIn, _ := new(big.Int).SetString("100000000000000000", 10)
	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   amountIn,
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	}); err != nil {
		t.Fatalf("swap: %v", err)
	}

	// Poke the position to settle fees.
	_, feesAccrued, err := p.ModifyLiquidity(ModifyLiquidityParams{
		Owner: testOwner, TickLower: -120, TickUpper: 120,
		LiquidityDelta: big.NewInt(0), TickSpacing: 60,
	})
	if err != nil {
		t.Fatalf("poke: %v", err)
	}
	if feesAccrued.Amount0.Sign() >= 0 {
		t.Fatalf("fees0 = %s, want negative (owed to position)", feesAccrued.Amount0)
	}
	// Settling through the per-liquidity accumulator loses at most a unit.
	fees0 := new(big.Int).Neg(feesAccrued.Amount0)
	feeTotal := big.NewInt(300_000_000_000_000)
	diff := new(big.Int).Sub(feeTotal, fees0)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("settled fees0 = %s, want within one unit of %s", fees0, feeTotal)
	}
	if feesAccrued.Amount1.Sign() != 0 {
		t.Fatalf("fees1 = %s, want 0", feesAccrued.Amount1)
	}
}

func TestSwapExactOutput(t *testing.T) {
	p := newInitializedPool(t)
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	addLiquidity(t, p, -120, 120, liquidity)

	wantOut, _ := new(big.Int).SetString("10000000000000000", 10) // 1e16
	res, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   new(big.Int).Neg(wantOut),
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got := new(big.Int).Neg(res.Delta.Amount1); got.Cmp(wantOut) != 0 {
		t.Fatalf("amount1 out = %s, want exactly %s", got, wantOut)
	}
	if res.Delta.Amount0.Sign() <= 0 {
		t.Fatalf("amount0 = %s, want positive (owed in)", res.Delta.Amount0)
	}
	// Input exceeds output near price 1 because of the fee.
	if res.Delta.Amount0.Cmp(wantOut) <= 0 {
		t.Fatalf("amount0 in = %s, want more than output %s", res.Delta.Amount0, wantOut)
	}
}

func TestSwapOneForZeroExactInput(t *testing.T) {
	p := newInitializedPool(t)
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	addLiquidity(t, p, -120, 120, liquidity)

	amountIn, _ := new(big.Int).SetString("100000000000000000", 10)
	res, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: false,
		AmountSpecified:   amountIn,
		SqrtPriceLimitX96: new(uint256.Int).SubUint64(tickmath.MaxSqrtPrice, 1),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Delta.Amount1.Cmp(amountIn) != 0 {
		t.Fatalf("amount1 = %s, want full input %s", res.Delta.Amount1, amountIn)
	}
	if res.Delta.Amount0.Sign() >= 0 {
		t.Fatalf("amount0 = %s, want negative", res.Delta.Amount0)
	}
	if p.Tick < 0 || p.Tick >= 120 {
		t.Fatalf("post-swap tick = %d, want within [0, 120)", p.Tick)
	}
}

func TestSwapCrossesTickAndExhaustsLiquidity(t *testing.T) {
	p := newInitializedPool(t)
	addLiquidity(t, p, -120, 120, big.NewInt(1_000_000_000))

	// Far more input than the range can absorb: the swap crosses the lower
	// tick, runs out of liquidity, and stops at the price limit with input
	// left over.
	amountIn, _ := new(big.Int).SetString("1000000000000000000", 10)
	res, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   amountIn,
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !p.Liquidity.IsZero() {
		t.Fatalf("liquidity = %s, want 0 after crossing out of range", p.Liquidity)
	}
	if p.Tick >= -120 {
		t.Fatalf("tick = %d, want below -120", p.Tick)
	}
	if res.Delta.Amount0.Cmp(amountIn) >= 0 {
		t.Fatalf("amount0 = %s, want partial consumption below %s", res.Delta.Amount0, amountIn)
	}
	if !p.SqrtPriceX96.Eq(new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1)) {
		t.Fatalf("price = %s, want stopped at limit", p.SqrtPriceX96)
	}
}

func TestSwapValidation(t *testing.T) {
	p := newInitializedPool(t)
	addLiquidity(t, p, -120, 120, big.NewInt(1_000_000_000))

	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   big.NewInt(0),
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	}); !errors.Is(err, ErrSwapAmountZero) {
		t.Fatalf("zero amount: got %v, want %v", err, ErrSwapAmountZero)
	}

	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   big.NewInt(100),
		SqrtPriceLimitX96: new(uint256.Int).Set(p.SqrtPriceX96),
	}); !errors.Is(err, ErrPriceLimitAlreadyReached) {
		t.Fatalf("limit at current price: got %v, want %v", err, ErrPriceLimitAlreadyReached)
	}

	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   big.NewInt(100),
		SqrtPriceLimitX96: new(uint256.Int).SubUint64(tickmath.MinSqrtPrice, 1),
	}); !errors.Is(err, ErrPriceLimitOutOfBounds) {
		t.Fatalf("limit below min: got %v, want %v", err, ErrPriceLimitOutOfBounds)
	}

	if _, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: false,
		AmountSpecified:   big.NewInt(100),
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MaxSqrtPrice, 1),
	}); !errors.Is(err, ErrPriceLimitOutOfBounds) {
		t.Fatalf("limit above max: got %v, want %v", err, ErrPriceLimitOutOfBounds)
	}
}

func TestSwapExactOutputWithFullFee(t *testing.T) {
	p := New()
	if _, err := p.Initialize(new(uint256.Int).Set(fullmath.Q96), 0, 1_000_000); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	addLiquidity(t, p, -120, 120, big.NewInt(1_000_000_000))
	_, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   big.NewInt(-100),
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	})
	if !errors.Is(err, ErrInvalidFeeForExactOut) {
		t.Fatalf("got %v, want %v", err, ErrInvalidFeeForExactOut)
	}
}

func TestSwapProtocolFeeSkim(t *testing.T) {
	p := New()
	// 0.05% protocol fee in both directions.
	packed := uint32(500) | uint32(500)<<12
	if _, err := p.Initialize(new(uint256.Int).Set(fullmath.Q96), packed, 3000); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	addLiquidity(t, p, -120, 120, liquidity)

	amountIn, _ := new(big.Int).SetString("100000000000000000", 10)
	res, err := p.Swap(SwapParams{
		TickSpacing: 60, ZeroForOne: true,
		AmountSpecified:   amountIn,
		SqrtPriceLimitX96: new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1),
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// Effective fee: 500 + 3000 - floor(500*3000/1e6) = 3499 pips.
	if res.SwapFee != 3499 {
		t.Fatalf("swap fee = %d, want 3499", res.SwapFee)
	}
	if res.AmountToProtocol.IsZero() {
		t.Fatal("expected protocol skim, got 0")
	}
	// Skim is protocolFee/1e6 of the gross input, rounded down.
	maxSkim := new(uint256.Int).Mul(uint256.MustFromBig(amountIn), uint256.NewInt(500))
	maxSkim.Div(maxSkim, uint256.NewInt(1_000_000))
	if res.AmountToProtocol.Cmp(maxSkim) > 0 {
		t.Fatalf("protocol skim %s exceeds cap %s", res.AmountToProtocol, maxSkim)
	}
}

func TestDonate(t *testing.T) {
	p := newInitializedPool(t)
	if _, err := p.Donate(uint256.NewInt(100), uint256.NewInt(200)); !errors.Is(err, ErrNoLiquidityToReceiveFees) {
		t.Fatalf("donate without liquidity: got %v, want %v", err, ErrNoLiquidityToReceiveFees)
	}

	liquidity, _ := new(big.Int).SetString("100000000000000000000", 10)
	addLiquidity(t, p, -120, 120, liquidity)

	amount0, amount1 := uint256.NewInt(1_000_000), uint256.NewInt(2_000_000)
	delta, err := p.Donate(amount0, amount1)
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	if delta.Amount0.Cmp(amount0.ToBig()) != 0 || delta.Amount1.Cmp(amount1.ToBig()) != 0 {
		t.Fatalf("donate delta = %s / %s, want %s / %s", delta.Amount0, delta.Amount1, amount0, amount1)
	}

	liq, _ := uint256.FromBig(liquidity)
	want0, _ := fullmath.MulDiv(amount0, fullmath.Q128, liq)
	want1, _ := fullmath.MulDiv(amount1, fullmath.Q128, liq)
	if !p.FeeGrowthGlobal0X128.Eq(want0) {
		t.Fatalf("growth0 = %s, want %s", p.FeeGrowthGlobal0X128, want0)
	}
	if !p.FeeGrowthGlobal1X128.Eq(want1) {
		t.Fatalf("growth1 = %s, want %s", p.FeeGrowthGlobal1X128, want1)
	}
}

func TestProtocolFeePacking(t *testing.T) {
	packed := uint32(500)<<12 | uint32(800)
	if got := ProtocolFeeOneForZero(packed); got != 500 {
		t.Fatalf("one-for-zero fee = %d, want 500", got)
	}
	if got := ProtocolFeeZeroForOne(packed); got != 800 {
		t.Fatalf("zero-for-one fee = %d, want 800", got)
	}
	if err := ValidateProtocolFee(packed); err != nil {
		t.Fatalf("valid fee rejected: %v", err)
	}
	if err := ValidateProtocolFee(uint32(1001)); !errors.Is(err, ErrProtocolFeeTooLarge) {
		t.Fatalf("lower component 1001: got %v, want %v", err, ErrProtocolFeeTooLarge)
	}
	if err := ValidateProtocolFee(uint32(1001) << 12); !errors.Is(err, ErrProtocolFeeTooLarge) {
		t.Fatalf("upper component 1001: got %v, want %v", err, ErrProtocolFeeTooLarge)
	}
}

func TestSetFees(t *testing.T) {
	p := newInitializedPool(t)
	if err := p.SetProtocolFee(uint32(1000)<<12 | 1000); err != nil {
		t.Fatalf("set protocol fee: %v", err)
	}
	if err := p.SetProtocolFee(1001); !errors.Is(err, ErrProtocolFeeTooLarge) {
		t.Fatalf("got %v, want %v", err, ErrProtocolFeeTooLarge)
	}
	if err := p.SetLPFee(500_000); err != nil {
		t.Fatalf("set lp fee: %v", err)
	}
	if err := p.SetLPFee(1_000_001); !errors.Is(err, ErrLPFeeTooLarge) {
		t.Fatalf("got %v, want %v", err, ErrLPFeeTooLarge)
	}
	if err := New().SetProtocolFee(0); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("got %v, want %v", err, ErrNotInitialized)
	}
}
