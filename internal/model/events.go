package model

// InitializeEventData is the payload emitted when a pool is created.
type InitializeEventData struct {
	Currency0    string `json:"currency0"`
	Currency1    string `json:"currency1"`
	Fee          uint32 `json:"fee"`
	TickSpacing  int32  `json:"tick_spacing"`
	Hooks        string `json:"hooks"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
	Price        string `json:"price"`
}

// ModifyLiquidityEventData is the payload emitted on a liquidity change.
type ModifyLiquidityEventData struct {
	Sender         string `json:"sender"`
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	LiquidityDelta string `json:"liquidity_delta"`
	Salt           string `json:"salt"`
}

// SwapEventData is the payload emitted after a swap.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
	Fee          uint32 `json:"fee"`
	Price        string `json:"price"`
}

// DonateEventData is the payload emitted after a donation.
type DonateEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// ProtocolFeeControllerUpdatedEventData records a controller change.
type ProtocolFeeControllerUpdatedEventData struct {
	Controller string `json:"controller"`
}

// ProtocolFeeUpdatedEventData records a per-pool protocol fee change.
type ProtocolFeeUpdatedEventData struct {
	ProtocolFee uint32 `json:"protocol_fee"`
}
