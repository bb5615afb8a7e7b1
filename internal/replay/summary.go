package replay

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"liquidityCore/internal/model"
)

// summary accumulates swap activity for one pool.
type summary struct {
	poolID      string
	currency0   string
	currency1   string
	fee         uint32
	tickSpacing int32
	swapCount   uint64
	volume0     *big.Int
	volume1     *big.Int
	lastTick    int32
	lastPrice   string
	lastSeq     uint64
}

// SummaryTracker rolls lifecycle events up into per-pool summaries.
type SummaryTracker struct {
	pools map[string]*summary
}

func NewSummaryTracker() *SummaryTracker {
	return &SummaryTracker{pools: make(map[string]*summary)}
}

// AddEvent folds one event record into the tracker. Events for pools whose
// Initialize was never seen are ignored.
func (t *SummaryTracker) AddEvent(rec model.EventRecord) error {
	switch rec.EventName {
	case model.EventInitialize:
		var data model.InitializeEventData
		if err := json.Unmarshal(rec.Decoded, &data); err != nil {
			return fmt.Errorf("decode initialize: %w", err)
		}
		t.pools[rec.PoolID] = &summary{
			poolID:      rec.PoolID,
			currency0:   data.Currency0,
			currency1:   data.Currency1,
			fee:         data.Fee,
			tickSpacing: data.TickSpacing,
			volume0:     big.NewInt(0),
			volume1:     big.NewInt(0),
			lastTick:    data.Tick,
			lastPrice:   data.Price,
			lastSeq:     rec.Seq,
		}
		return nil
	case model.EventSwap:
		sum, ok := t.pools[rec.PoolID]
		if !ok {
			return nil
		}
		var data model.SwapEventData
		if err := json.Unmarshal(rec.Decoded, &data); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		amount0, err := parseBigInt(data.Amount0)
		if err != nil {
			return err
		}
		amount1, err := parseBigInt(data.Amount1)
		if err != nil {
			return err
		}
		sum.volume0.Add(sum.volume0, new(big.Int).Abs(amount0))
		sum.volume1.Add(sum.volume1, new(big.Int).Abs(amount1))
		sum.swapCount++
		sum.lastTick = data.Tick
		sum.lastPrice = data.Price
		sum.lastSeq = rec.Seq
		return nil
	default:
		return nil
	}
}

// Snapshot renders the tracked pools sorted by pool id.
func (t *SummaryTracker) Snapshot() []model.PoolSummary {
	out := make([]model.PoolSummary, 0, len(t.pools))
	for _, sum := range t.pools {
		out = append(out, model.PoolSummary{
			PoolID:      sum.poolID,
			Currency0:   sum.currency0,
			Currency1:   sum.currency1,
			Fee:         sum.fee,
			TickSpacing: sum.tickSpacing,
			SwapCount:   sum.swapCount,
			Volume0:     sum.volume0.String(),
			Volume1:     sum.volume1.String(),
			LastTick:    sum.lastTick,
			LastPrice:   sum.lastPrice,
			LastSeq:     sum.lastSeq,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out
}
