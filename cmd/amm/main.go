package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liquidityEngine/internal/breaker"
	"liquidityEngine/internal/config"
	"liquidityEngine/internal/engine"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/ledger/postgres"
	"liquidityEngine/internal/mev"
	"liquidityEngine/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "AMM exchange engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("pg-dsn", "", "Postgres DSN; uses the local state file when empty")
	flags.String("state-file", "./data/ledger.json", "local JSON ledger snapshot")
	flags.String("journal", "", "optional audit journal JSONL path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Uint32("slippage-bps", 50, "default slippage tolerance for quotes")
	flags.Int("breaker-cooldown", 30, "default circuit breaker cooldown in minutes")
	flags.Int("breaker-cache-size", 1024, "circuit breaker cache entries")
	flags.Duration("mev-window", 5*time.Second, "MEV sandwich detection window")
	flags.Int("mev-lookback", 10, "recent swaps scanned by the MEV detector")
	flags.Int("route-concurrency", 8, "pools quoted concurrently when routing")

	root.AddCommand(
		newPoolCmd(),
		newSwapCmd(),
		newLiquidityCmd(),
		newBreakerCmd(),
		newOracleCmd(),
		newStatsCmd(),
		newJournalCmd(),
		newMigrateCmd(),
	)
	return root
}

// app bundles what a command needs; close releases it.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  ledger.Store
	engine *engine.Engine
}

func openApp(cmd *cobra.Command) (*app, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	var journal storage.Journal = storage.Nop{}
	if cfg.Journal != "" {
		journal = storage.NewJsonlJournal(cfg.Journal)
	}

	eng, err := engine.New(engine.Config{
		DefaultSlippageBps: &cfg.SlippageBps,
		RouteConcurrency:   cfg.RouteConcurrency,
		Breaker: breaker.Config{
			CacheSize:       cfg.BreakerCacheSize,
			DefaultCooldown: cfg.BreakerCooldown,
		},
		MEV: mev.Config{
			Window:   cfg.MEVWindow,
			Lookback: cfg.MEVLookback,
		},
	}, store, journal, logger)
	if err != nil {
		_ = store.Close()
		_ = logger.Sync()
		return nil, nil, err
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close ledger", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return &app{cfg: cfg, logger: logger, store: store, engine: eng}, closeFn, nil
}

func openStore(ctx context.Context, cfg config.Config) (ledger.Store, error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, nil
	}
	store, err := ledger.OpenFile(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	return store, nil
}

// run wires signal handling and the app around a command body.
func run(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, closeFn, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, cmd, a, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
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
