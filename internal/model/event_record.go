package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lifecycle event names.
const (
	EventInitialize                   = "Initialize"
	EventModifyLiquidity              = "ModifyLiquidity"
	EventSwap                         = "Swap"
	EventDonate                       = "Donate"
	EventProtocolFeeControllerUpdated = "ProtocolFeeControllerUpdated"
	EventProtocolFeeUpdated           = "ProtocolFeeUpdated"
)

// EventRecord is the JSON envelope written to event sinks.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	EventName string          `json:"event_name"`
	PoolID    string          `json:"pool_id,omitempty"`
	Decoded   json.RawMessage `json:"decoded"`
}

// NewEventRecord marshals the payload into an envelope.
func NewEventRecord(seq uint64, name string, poolID string, payload any) (EventRecord, error) {
	decoded, err := json.Marshal(payload)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return EventRecord{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		EventName: name,
		PoolID:    poolID,
		Decoded:   decoded,
	}, nil
}
