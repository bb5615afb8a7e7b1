package model

// PoolSummary is the per-pool rollup produced by the replay runner: swap
// activity totals plus the pool's last observed state.
type PoolSummary struct {
	PoolID      string `json:"pool_id"`
	Currency0   string `json:"currency0"`
	Currency1   string `json:"currency1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	SwapCount   uint64 `json:"swap_count"`
	Volume0     string `json:"volume0"`
	Volume1     string `json:"volume1"`
	LastTick    int32  `json:"last_tick"`
	LastPrice   string `json:"last_price"`
	LastSeq     uint64 `json:"last_seq"`
}
