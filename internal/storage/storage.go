package storage

import (
	"context"

	"liquidityCore/internal/model"
)

// Sink defines a destination for lifecycle event records.
type Sink interface {
	PutEventBatch(ctx context.Context, events []model.EventRecord) error
}
