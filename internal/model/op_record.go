package model

import "encoding/json"

// Op names accepted by the replay runner.
const (
	OpInitialize      = "initialize"
	OpModifyLiquidity = "modify_liquidity"
	OpSwap            = "swap"
	OpDonate          = "donate"
)

// OpRecord is one line of a replay input stream: a pool key, an operation
// name, and its parameters.
type OpRecord struct {
	Seq    uint64          `json:"seq"`
	Op     string          `json:"op"`
	Sender string          `json:"sender"`
	Pool   PoolKey         `json:"pool"`
	Params json.RawMessage `json:"params"`
}

// InitializeParams are the parameters for an initialize op.
type InitializeParams struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
}

// ModifyLiquidityParams are the parameters for a modify-liquidity op.
type ModifyLiquidityParams struct {
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	LiquidityDelta string `json:"liquidity_delta"`
	Salt           string `json:"salt"`
}

// SwapParams are the parameters for a swap op.
type SwapParams struct {
	ZeroForOne        bool   `json:"zero_for_one"`
	AmountSpecified   string `json:"amount_specified"`
	SqrtPriceLimitX96 string `json:"sqrt_price_limit_x96"`
}

// DonateParams are the parameters for a donate op.
type DonateParams struct {
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}
