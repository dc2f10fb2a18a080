package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityEngine/internal/engine"
	"liquidityEngine/internal/model"
)

const defaultDeadlineWindow = 20 * time.Minute

func newSwapCmd() *cobra.Command {
	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote, execute and route swaps",
	}

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without executing it",
		RunE:  run(runSwapQuote),
	}
	addSwapFlags(quoteCmd)

	execCmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a swap",
		RunE:  run(runSwapExec),
	}
	addSwapFlags(execCmd)
	execCmd.Flags().String("trader", "", "trader address")
	execCmd.Flags().String("min-out", "", "minimum output; defaults to the quote with the configured slippage")
	execCmd.Flags().Int64("deadline", 0, "unix deadline; defaults to now + 20m")

	routeCmd := &cobra.Command{
		Use:   "route",
		Short: "Find the pool with the best output for a pair",
		RunE:  run(runSwapRoute),
	}
	routeCmd.Flags().String("in", "", "token in address")
	routeCmd.Flags().String("out", "", "token out address")
	routeCmd.Flags().String("amount", "", "amount in, base units")

	showCmd := &cobra.Command{
		Use:   "show <swap-id>",
		Short: "Show a swap record",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runSwapShow),
	}

	listCmd := &cobra.Command{
		Use:   "list [pool-id]",
		Short: "List swaps of a pool, a trader or every pool, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run(runSwapList),
	}
	listCmd.Flags().Int("limit", 20, "maximum swaps")
	listCmd.Flags().String("trader", "", "list one trader's swaps across pools")

	swapCmd.AddCommand(quoteCmd, execCmd, routeCmd, showCmd, listCmd)
	return swapCmd
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool id")
	cmd.Flags().String("in", "", "token in address")
	cmd.Flags().String("out", "", "token out address")
	cmd.Flags().String("amount", "", "amount in, base units")
}

func quoteRequest(cmd *cobra.Command) (engine.QuoteRequest, error) {
	poolID, _ := cmd.Flags().GetString("pool")
	tokenIn, _ := cmd.Flags().GetString("in")
	tokenOut, _ := cmd.Flags().GetString("out")
	amount, _ := cmd.Flags().GetString("amount")
	if poolID == "" || tokenIn == "" || tokenOut == "" || amount == "" {
		return engine.QuoteRequest{}, fmt.Errorf("--pool, --in, --out and --amount are required")
	}
	req := engine.QuoteRequest{PoolID: poolID, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amount}
	if cmd.Flags().Changed("slippage-bps") {
		bps, _ := cmd.Flags().GetUint32("slippage-bps")
		req.SlippageBps = &bps
	}
	return req, nil
}

func runSwapQuote(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	req, err := quoteRequest(cmd)
	if err != nil {
		return err
	}
	quote, err := a.engine.CalculateSwapQuote(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}

func runSwapExec(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	req, err := quoteRequest(cmd)
	if err != nil {
		return err
	}
	trader, _ := cmd.Flags().GetString("trader")
	minOut, _ := cmd.Flags().GetString("min-out")
	deadline, _ := cmd.Flags().GetInt64("deadline")
	if deadline == 0 {
		deadline = time.Now().Add(defaultDeadlineWindow).Unix()
	}
	if minOut == "" {
		quote, err := a.engine.CalculateSwapQuote(ctx, req)
		if err != nil {
			return err
		}
		minOut = quote.MinimumAmountOut
	}

	swap, err := a.engine.ExecuteSwap(ctx, engine.SwapRequest{
		PoolID:           req.PoolID,
		Trader:           trader,
		TokenIn:          req.TokenIn,
		TokenOut:         req.TokenOut,
		AmountIn:         req.AmountIn,
		MinimumAmountOut: minOut,
		Deadline:         deadline,
	})
	if err != nil {
		if swap.ID != "" {
			a.logger.Error("swap recorded as failed", zap.String("swap", swap.ID), zap.Error(err))
		}
		return err
	}
	return printJSON(cmd, swap)
}

func runSwapRoute(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	tokenIn, _ := cmd.Flags().GetString("in")
	tokenOut, _ := cmd.Flags().GetString("out")
	amount, _ := cmd.Flags().GetString("amount")
	if tokenIn == "" || tokenOut == "" || amount == "" {
		return fmt.Errorf("--in, --out and --amount are required")
	}
	route, err := a.engine.GetOptimalSwapRoute(ctx, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}
	return printJSON(cmd, route)
}

func runSwapShow(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	swap, err := a.engine.GetSwap(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, swap)
}

func runSwapList(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	trader, _ := cmd.Flags().GetString("trader")

	var (
		swaps []model.Swap
		err   error
	)
	switch {
	case len(args) == 1 && trader != "":
		return fmt.Errorf("pass either a pool id or --trader, not both")
	case len(args) == 1:
		swaps, err = a.engine.GetSwapsByPool(ctx, args[0], limit)
	case trader != "":
		swaps, err = a.engine.GetSwapsByTrader(ctx, trader, limit)
	default:
		swaps, err = a.engine.GetRecentSwaps(ctx, limit)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, swaps)
}
