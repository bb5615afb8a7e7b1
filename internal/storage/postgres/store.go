package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCore/internal/model"
)

// Store provides Postgres persistence for lifecycle events and pool
// summaries.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutEventBatch inserts event records, ignoring sequence numbers already
// stored so replays are idempotent.
func (s *Store) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				seq, event_time, event_name, pool_id, decoded, created_at
			) VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(event.Seq),
			event.Timestamp,
			event.EventName,
			event.PoolID,
			[]byte(event.Decoded),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolSummaries inserts or updates per-pool replay rollups.
func (s *Store) UpsertPoolSummaries(ctx context.Context, summaries []model.PoolSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, summary := range summaries {
		batch.Queue(`
			INSERT INTO pool_summaries (
				pool_id, currency0, currency1, fee, tick_spacing,
				swap_count, volume0, volume1, last_tick, last_price, last_seq,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				swap_count = EXCLUDED.swap_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				last_tick = EXCLUDED.last_tick,
				last_price = EXCLUDED.last_price,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			summary.PoolID,
			summary.Currency0,
			summary.Currency1,
			summary.Fee,
			summary.TickSpacing,
			int64(summary.SwapCount),
			summary.Volume0,
			summary.Volume1,
			summary.LastTick,
			summary.LastPrice,
			int64(summary.LastSeq),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range summaries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed op sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_seq FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts the last processed op sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_processed_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_seq = EXCLUDED.last_processed_seq, updated_at = now()
	`, name, seq)
	return err
}
