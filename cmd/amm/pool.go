package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityEngine/internal/chain"
	"liquidityEngine/internal/engine"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/tokenmeta"
)

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool with empty reserves",
		RunE:  run(runPoolCreate),
	}
	createCmd.Flags().String("name", "", "pool name (defaults to the joined symbols)")
	createCmd.Flags().String("type", string(model.PoolTypeConstantProduct), "constant_product, standard, stable, concentrated, weighted or multi_asset")
	createCmd.Flags().Uint32("fee-bps", 30, "swap fee in basis points")
	createCmd.Flags().StringSlice("token", nil, "token addresses in asset order")
	createCmd.Flags().StringSlice("symbol", nil, "token symbols in asset order")
	createCmd.Flags().IntSlice("decimals", nil, "token decimals in asset order")
	createCmd.Flags().UintSlice("weight", nil, "asset weights in bps for weighted pools")
	createCmd.Flags().Bool("mev-protection", false, "flag swaps in this pool as MEV protected")
	createCmd.Flags().Bool("ai-route", false, "enable route optimization for this pool")
	createCmd.Flags().Int("cooldown-minutes", 0, "circuit breaker cooldown override")
	createCmd.Flags().String("rpc", "", "RPC URL used to resolve missing symbols and decimals")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pools",
		RunE:  run(runPoolList),
	}
	listCmd.Flags().Int("limit", 0, "maximum pools, 0 for all")
	listCmd.Flags().String("type", "", "only pools of this type")

	showCmd := &cobra.Command{
		Use:   "show <pool-id>",
		Short: "Show a pool with its assets, ticks and breaker",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runPoolShow),
	}

	tickCmd := &cobra.Command{
		Use:   "tick <pool-id>",
		Short: "Register a liquidity range on a concentrated pool",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runPoolTick),
	}
	tickCmd.Flags().Int32("index", 0, "tick index")
	tickCmd.Flags().String("liquidity", "", "1e18-scaled share of reserves available in the tick")

	statusCmd := &cobra.Command{
		Use:   "status <pool-id> <active|paused|halted>",
		Short: "Change a pool's status",
		Args:  cobra.ExactArgs(2),
		RunE:  run(runPoolStatus),
	}

	metricsCmd := &cobra.Command{
		Use:   "metrics <pool-id>",
		Short: "Show APY, utilization and volatility",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runPoolMetrics),
	}

	predictCmd := &cobra.Command{
		Use:   "predict <pool-id>",
		Short: "Extrapolate the pool price from recent hourly candles",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runPoolPredict),
	}

	poolCmd.AddCommand(createCmd, listCmd, showCmd, tickCmd, statusCmd, metricsCmd, predictCmd)
	return poolCmd
}

func runPoolCreate(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	poolType, _ := flags.GetString("type")
	feeBps, _ := flags.GetUint32("fee-bps")
	tokens, _ := flags.GetStringSlice("token")
	symbols, _ := flags.GetStringSlice("symbol")
	decimals, _ := flags.GetIntSlice("decimals")
	weights, _ := flags.GetUintSlice("weight")
	mevProtection, _ := flags.GetBool("mev-protection")
	aiRoute, _ := flags.GetBool("ai-route")
	cooldown, _ := flags.GetInt("cooldown-minutes")
	rpcURL, _ := flags.GetString("rpc")
	if rpcURL == "" {
		rpcURL = a.cfg.RPCURL
	}

	if len(tokens) < 2 {
		return fmt.Errorf("at least two --token values are required")
	}
	specs := make([]engine.AssetSpec, len(tokens))
	missing := false
	for i, token := range tokens {
		specs[i].TokenAddress = strings.TrimSpace(token)
		if i < len(symbols) {
			specs[i].TokenSymbol = symbols[i]
		}
		if i < len(decimals) {
			if decimals[i] < 0 || decimals[i] > 255 {
				return fmt.Errorf("decimals %d out of range", decimals[i])
			}
			specs[i].Decimals = uint8(decimals[i])
		} else {
			missing = true
		}
		if specs[i].TokenSymbol == "" {
			missing = true
		}
		if i < len(weights) {
			specs[i].Weight = uint32(weights[i])
		}
	}

	if missing && rpcURL != "" {
		if err := resolveTokens(ctx, a, rpcURL, specs, len(decimals)); err != nil {
			return err
		}
	}

	pool, err := a.engine.CreatePool(ctx, engine.CreatePoolRequest{
		Name:                 name,
		PoolType:             model.PoolType(poolType),
		FeeTierBps:           feeBps,
		Assets:               specs,
		MEVProtectionEnabled: mevProtection,
		AIRouteOptimization:  aiRoute,
		CooldownMinutes:      cooldown,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, pool)
}

// resolveTokens fills symbols and decimals that were not given on the
// command line from the token contracts.
func resolveTokens(ctx context.Context, a *app, rpcURL string, specs []engine.AssetSpec, givenDecimals int) error {
	client, err := chain.NewClient(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	if chainID, err := client.ChainID(ctx); err == nil {
		a.logger.Info("resolving token metadata", zap.String("rpc", rpcURL), zap.String("chain_id", chainID.String()))
	}

	resolver, err := tokenmeta.NewResolver(client, a.logger.Named("tokenmeta"))
	if err != nil {
		return err
	}
	for i := range specs {
		meta, err := resolver.Resolve(ctx, specs[i].TokenAddress)
		if err != nil {
			return fmt.Errorf("resolve token %s: %w", specs[i].TokenAddress, err)
		}
		if specs[i].TokenSymbol == "" {
			specs[i].TokenSymbol = meta.Symbol
		}
		if i >= givenDecimals {
			specs[i].Decimals = meta.Decimals
		}
	}
	return nil
}

func runPoolList(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	poolType, _ := cmd.Flags().GetString("type")
	if poolType != "" {
		pools, err := a.engine.GetPoolsByType(ctx, model.PoolType(poolType))
		if err != nil {
			return err
		}
		if limit > 0 && len(pools) > limit {
			pools = pools[:limit]
		}
		return printJSON(cmd, pools)
	}
	pools, err := a.engine.GetAllPools(ctx, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, pools)
}

func runPoolShow(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	pool, err := a.engine.GetPoolWithAssets(ctx, args[0])
	if err != nil {
		return err
	}
	ticks, err := a.engine.GetPoolTicks(ctx, args[0])
	if err != nil {
		return err
	}
	cb, err := a.engine.GetCircuitBreaker(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, struct {
		model.PoolWithAssets
		Ticks   []model.PoolTick     `json:"ticks"`
		Breaker model.CircuitBreaker `json:"circuit_breaker"`
	}{pool, ticks, cb})
}

func runPoolTick(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	index, _ := cmd.Flags().GetInt32("index")
	liquidity, _ := cmd.Flags().GetString("liquidity")
	if liquidity == "" {
		return fmt.Errorf("--liquidity is required")
	}
	tick, err := a.engine.AddPoolTick(ctx, args[0], index, liquidity)
	if err != nil {
		return err
	}
	return printJSON(cmd, tick)
}

func runPoolStatus(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	pool, err := a.engine.SetPoolStatus(ctx, args[0], model.PoolStatus(args[1]))
	if err != nil {
		return err
	}
	return printJSON(cmd, pool)
}

func runPoolMetrics(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	metrics, err := a.engine.GetPoolMetrics(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, metrics)
}

func runPoolPredict(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	prediction, err := a.engine.GetPricePrediction(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, prediction)
}
