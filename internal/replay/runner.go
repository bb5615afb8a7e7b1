package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityCore/internal/engine"
	"liquidityCore/internal/model"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/tickmath"
)

// SummaryStore persists per-pool rollups at the end of a run.
type SummaryStore interface {
	UpsertPoolSummaries(ctx context.Context, summaries []model.PoolSummary) error
}

// ProgressStore persists replay progress remotely, keyed by name.
type ProgressStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, seq uint64) error
}

// RunConfig holds runtime settings for the replay runner.
type RunConfig struct {
	OpsPath      string
	StatePath    string
	StateEnabled bool
	StateName    string
	EngineAddr   common.Address
}

// Runner drives an engine from a JSONL op stream: one session per op, with
// every resulting obligation settled through an in-memory vault. Emitted
// lifecycle events are forwarded to the event sink and folded into per-pool
// summaries. The engine itself is in-memory, so on resume the ops at or
// below the saved sequence are re-applied to rebuild its state; only their
// sink writes are suppressed.
type Runner struct {
	cfg       RunConfig
	engine    *engine.Engine
	vault     *Vault
	sink      storage.Sink
	tracker   *SummaryTracker
	state     *StateStore
	summaries SummaryStore
	progress  ProgressStore
	logger    *zap.Logger
	pending   []model.EventRecord
}

// NewRunner builds a Runner and the engine it drives. The summary and
// progress stores are optional.
func NewRunner(cfg RunConfig, sink storage.Sink, summaries SummaryStore, progress ProgressStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:       cfg,
		vault:     NewVault(cfg.EngineAddr),
		sink:      sink,
		tracker:   NewSummaryTracker(),
		state:     NewStateStore(cfg.StatePath, cfg.StateEnabled),
		summaries: summaries,
		progress:  progress,
		logger:    logger,
	}
	r.engine = engine.New(engine.Options{
		Address: cfg.EngineAddr,
		Backend: r.vault,
		Sink:    r,
		Logger:  logger,
	})
	return r
}

// Engine exposes the driven engine for state inspection.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Summaries returns the current per-pool rollups.
func (r *Runner) Summaries() []model.PoolSummary { return r.tracker.Snapshot() }

// RecordEvent buffers an engine event until the op that produced it is
// committed.
func (r *Runner) RecordEvent(_ context.Context, rec model.EventRecord) error {
	r.pending = append(r.pending, rec)
	return nil
}

// Run executes the replay loop over the op stream.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.OpsPath == "" {
		return fmt.Errorf("ops path is required")
	}
	if r.sink == nil {
		return fmt.Errorf("event sink is nil")
	}

	lastSeq := uint64(0)
	if st, ok, err := r.state.Load(); err != nil {
		return err
	} else if ok {
		lastSeq = st.LastProcessedSeq
	}
	if r.progress != nil {
		if seq, ok, err := r.progress.LoadState(ctx, r.cfg.StateName); err != nil {
			return fmt.Errorf("load progress: %w", err)
		} else if ok && seq > lastSeq {
			lastSeq = seq
		}
	}
	if lastSeq > 0 {
		r.logger.Info("resume from state", zap.Uint64("last_processed_seq", lastSeq))
	}

	file, err := os.Open(r.cfg.OpsPath)
	if err != nil {
		return fmt.Errorf("open ops file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	processed := 0
	rebuilt := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var op model.OpRecord
		if err := json.Unmarshal(line, &op); err != nil {
			return fmt.Errorf("parse op at line %d: %w", lineNo, err)
		}

		// Ops at or below the saved sequence were already persisted, but the
		// engine is fresh on every run: re-apply them to rebuild pool and
		// vault state without writing their events again.
		if op.Seq <= lastSeq {
			if err := r.applyOp(ctx, op); err != nil {
				r.pending = r.pending[:0]
				return fmt.Errorf("rebuild op seq %d (%s): %w", op.Seq, op.Op, err)
			}
			if err := r.summarize(); err != nil {
				return err
			}
			r.pending = r.pending[:0]
			rebuilt++
			continue
		}

		if err := r.applyOp(ctx, op); err != nil {
			r.pending = r.pending[:0]
			return fmt.Errorf("apply op seq %d (%s): %w", op.Seq, op.Op, err)
		}

		if err := r.commit(ctx, op.Seq); err != nil {
			return err
		}
		lastSeq = op.Seq
		processed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ops file: %w", err)
	}

	if r.summaries != nil {
		if err := r.summaries.UpsertPoolSummaries(ctx, r.tracker.Snapshot()); err != nil {
			return fmt.Errorf("store summaries: %w", err)
		}
	}

	r.logger.Info("replay complete",
		zap.Int("ops", processed),
		zap.Int("rebuilt", rebuilt),
		zap.Uint64("last_processed_seq", lastSeq),
		zap.Int("pools", len(r.tracker.pools)))
	return nil
}

// summarize folds the buffered events into the per-pool rollups.
func (r *Runner) summarize() error {
	for _, rec := range r.pending {
		if err := r.tracker.AddEvent(rec); err != nil {
			return fmt.Errorf("summarize events: %w", err)
		}
	}
	return nil
}

// commit folds buffered events into the summaries, persists them, and
// advances the state.
func (r *Runner) commit(ctx context.Context, seq uint64) error {
	if err := r.summarize(); err != nil {
		return err
	}
	if err := r.sink.PutEventBatch(ctx, r.pending); err != nil {
		return fmt.Errorf("store events: %w", err)
	}
	r.pending = r.pending[:0]
	if err := r.state.Save(seq); err != nil {
		return err
	}
	if r.progress != nil {
		if err := r.progress.SaveState(ctx, r.cfg.StateName, seq); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
	}
	return nil
}

func (r *Runner) applyOp(ctx context.Context, op model.OpRecord) error {
	sender := common.HexToAddress(op.Sender)
	switch op.Op {
	case model.OpInitialize:
		var params model.InitializeParams
		if err := json.Unmarshal(op.Params, &params); err != nil {
			return fmt.Errorf("parse initialize params: %w", err)
		}
		sqrtPrice, err := uint256.FromDecimal(params.SqrtPriceX96)
		if err != nil {
			return fmt.Errorf("parse sqrt price: %w", err)
		}
		return r.engine.Unlock(ctx, sender, func(ctx context.Context, _ *engine.Session) error {
			_, err := r.engine.Initialize(ctx, op.Pool, sqrtPrice)
			return err
		})

	case model.OpModifyLiquidity:
		var params model.ModifyLiquidityParams
		if err := json.Unmarshal(op.Params, &params); err != nil {
			return fmt.Errorf("parse modify-liquidity params: %w", err)
		}
		liquidityDelta, err := parseBigInt(params.LiquidityDelta)
		if err != nil {
			return fmt.Errorf("parse liquidity delta: %w", err)
		}
		return r.engine.Unlock(ctx, sender, func(ctx context.Context, _ *engine.Session) error {
			delta, _, err := r.engine.ModifyLiquidity(ctx, op.Pool, engine.ModifyLiquidityParams{
				TickLower:      params.TickLower,
				TickUpper:      params.TickUpper,
				LiquidityDelta: liquidityDelta,
				Salt:           common.HexToHash(params.Salt),
			})
			if err != nil {
				return err
			}
			return r.settleDelta(ctx, sender, op.Pool, delta)
		})

	case model.OpSwap:
		var params model.SwapParams
		if err := json.Unmarshal(op.Params, &params); err != nil {
			return fmt.Errorf("parse swap params: %w", err)
		}
		amount, err := parseBigInt(params.AmountSpecified)
		if err != nil {
			return fmt.Errorf("parse amount specified: %w", err)
		}
		limit, err := swapLimit(params)
		if err != nil {
			return err
		}
		return r.engine.Unlock(ctx, sender, func(ctx context.Context, _ *engine.Session) error {
			delta, err := r.engine.Swap(ctx, op.Pool, engine.SwapParams{
				ZeroForOne:        params.ZeroForOne,
				AmountSpecified:   amount,
				SqrtPriceLimitX96: limit,
			})
			if err != nil {
				return err
			}
			return r.settleDelta(ctx, sender, op.Pool, delta)
		})

	case model.OpDonate:
		var params model.DonateParams
		if err := json.Unmarshal(op.Params, &params); err != nil {
			return fmt.Errorf("parse donate params: %w", err)
		}
		amount0, err := uint256.FromDecimal(params.Amount0)
		if err != nil {
			return fmt.Errorf("parse amount0: %w", err)
		}
		amount1, err := uint256.FromDecimal(params.Amount1)
		if err != nil {
			return fmt.Errorf("parse amount1: %w", err)
		}
		return r.engine.Unlock(ctx, sender, func(ctx context.Context, _ *engine.Session) error {
			delta, err := r.engine.Donate(ctx, op.Pool, amount0, amount1)
			if err != nil {
				return err
			}
			return r.settleDelta(ctx, sender, op.Pool, delta)
		})

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// swapLimit parses the price limit, defaulting to the usable bound for the
// swap direction when the op leaves it empty.
func swapLimit(params model.SwapParams) (*uint256.Int, error) {
	if params.SqrtPriceLimitX96 == "" {
		if params.ZeroForOne {
			return new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1), nil
		}
		return new(uint256.Int).SubUint64(tickmath.MaxSqrtPrice, 1), nil
	}
	limit, err := uint256.FromDecimal(params.SqrtPriceLimitX96)
	if err != nil {
		return nil, fmt.Errorf("parse sqrt price limit: %w", err)
	}
	return limit, nil
}

// settleDelta drives both components of an op's balance delta to zero:
// amounts owed to the pool are funded into the vault and settled, amounts
// owed to the sender are taken out.
func (r *Runner) settleDelta(ctx context.Context, sender common.Address, key model.PoolKey, delta model.BalanceDelta) error {
	if err := r.settleComponent(ctx, sender, key.Currency0, delta.Amount0); err != nil {
		return err
	}
	return r.settleComponent(ctx, sender, key.Currency1, delta.Amount1)
}

func (r *Runner) settleComponent(ctx context.Context, sender common.Address, currency model.Currency, amount *big.Int) error {
	switch amount.Sign() {
	case 0:
		return nil
	case -1:
		owed, _ := uint256.FromBig(new(big.Int).Neg(amount))
		return r.engine.Take(ctx, currency, sender, owed)
	default:
		due, _ := uint256.FromBig(amount)
		if currency.IsNative() {
			r.vault.Deposit(currency, r.cfg.EngineAddr, due)
			_, err := r.engine.Settle(ctx, due)
			return err
		}
		if err := r.engine.Sync(ctx, currency); err != nil {
			return err
		}
		r.vault.Deposit(currency, r.cfg.EngineAddr, due)
		_, err := r.engine.Settle(ctx, nil)
		return err
	}
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
