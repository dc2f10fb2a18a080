package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"liquidityEngine/internal/oracle"
)

func newOracleCmd() *cobra.Command {
	oracleCmd := &cobra.Command{
		Use:   "oracle",
		Short: "Read price observations, candles and trader analytics",
	}

	twapCmd := &cobra.Command{
		Use:   "twap <pool-id>",
		Short: "List cumulative price observations, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runOracleTwap),
	}
	twapCmd.Flags().Int("limit", 20, "maximum observations")

	averageCmd := &cobra.Command{
		Use:   "average <pool-id>",
		Short: "Time-weighted average price over the last observations",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runOracleAverage),
	}
	averageCmd.Flags().Int("window", 10, "number of observations spanned")

	historyCmd := &cobra.Command{
		Use:   "history <pool-id>",
		Short: "List hourly price candles, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runOracleHistory),
	}
	historyCmd.Flags().Int("limit", 24, "maximum candles")

	mevCmd := &cobra.Command{
		Use:   "mev [pool-id]",
		Short: "List MEV findings for a pool or for every pool",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run(runOracleMev),
	}
	mevCmd.Flags().Int("limit", 50, "maximum events")

	analyticsCmd := &cobra.Command{
		Use:   "analytics <address>",
		Short: "Show a trader's analytics and tier",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runOracleAnalytics),
	}

	oracleCmd.AddCommand(twapCmd, averageCmd, historyCmd, mevCmd, analyticsCmd)
	return oracleCmd
}

func runOracleTwap(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	observations, err := a.engine.GetTwapObservations(ctx, args[0], limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, observations)
}

func runOracleAverage(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	window, _ := cmd.Flags().GetInt("window")
	if window < 2 {
		return fmt.Errorf("--window must span at least two observations")
	}
	observations, err := a.engine.GetTwapObservations(ctx, args[0], window)
	if err != nil {
		return err
	}
	if len(observations) < 2 {
		return fmt.Errorf("pool %s has %d observations: %w", args[0], len(observations), oracle.ErrEmptyWindow)
	}
	end, start := observations[0], observations[len(observations)-1]
	price0, price1, err := oracle.AveragePrice(start, end)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"pool_id":    args[0],
		"from":       start.BlockTimestamp,
		"to":         end.BlockTimestamp,
		"price0":     decimal.NewFromBigInt(price0, -18).String(),
		"price1":     decimal.NewFromBigInt(price1, -18).String(),
		"samples":    len(observations),
		"last_index": end.ObservationIndex,
	})
}

func runOracleHistory(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	candles, err := a.engine.GetPriceHistory(ctx, args[0], limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, candles)
}

func runOracleMev(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	var poolID string
	if len(args) == 1 {
		poolID = args[0]
	}
	events, err := a.engine.GetMevEvents(ctx, poolID, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd, events)
}

func runOracleAnalytics(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	analytics, err := a.engine.GetUserAnalytics(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, analytics)
}
