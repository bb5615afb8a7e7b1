package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityCore/internal/config"
	"liquidityCore/internal/replay"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "Concentrated-liquidity pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSONL op stream through the engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("ops", "", "input ops JSONL path")
	replayCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	replayCmd.Flags().String("state", "./data/state.json", "state file path")
	replayCmd.Flags().String("state-name", "replay", "state row name for Postgres")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and summaries")
	replayCmd.Flags().String("engine-addr", "engine", "address identity for engine holdings")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Ops == "" {
		return fmt.Errorf("ops path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink storage.Sink = storage.NewJsonlSink(cfg.Out)
	var summaries replay.SummaryStore
	var progress replay.ProgressStore

	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = store
		summaries = store
		progress = store
	}

	engineAddr := common.BytesToAddress([]byte(cfg.EngineAddr))
	if common.IsHexAddress(cfg.EngineAddr) {
		engineAddr = common.HexToAddress(cfg.EngineAddr)
	}

	runner := replay.NewRunner(replay.RunConfig{
		OpsPath:      cfg.Ops,
		StatePath:    cfg.State,
		StateEnabled: cfg.State != "",
		StateName:    cfg.StateName,
		EngineAddr:   engineAddr,
	}, sink, summaries, progress, logger)

	logger.Info("replay start",
		zap.String("ops", cfg.Ops),
		zap.String("out", cfg.Out),
		zap.String("state", cfg.State),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
