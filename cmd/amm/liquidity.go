package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"liquidityEngine/internal/engine"
	"liquidityEngine/internal/model"
)

func newLiquidityCmd() *cobra.Command {
	liquidityCmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Deposit and withdraw pool liquidity",
	}

	quoteAddCmd := &cobra.Command{
		Use:   "quote-add",
		Short: "Price a deposit",
		RunE:  run(runLiquidityQuoteAdd),
	}
	quoteAddCmd.Flags().String("pool", "", "pool id")
	quoteAddCmd.Flags().StringSlice("amount", nil, "token=amount pairs in base units")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit into a pool",
		RunE:  run(runLiquidityAdd),
	}
	addCmd.Flags().String("pool", "", "pool id")
	addCmd.Flags().String("provider", "", "provider address")
	addCmd.Flags().StringSlice("amount", nil, "token=amount pairs in base units")
	addCmd.Flags().String("min-lp", "", "minimum LP tokens to mint")
	addCmd.Flags().Int32("tick-lower", 0, "lower tick for concentrated pools")
	addCmd.Flags().Int32("tick-upper", 0, "upper tick for concentrated pools")

	quoteRemoveCmd := &cobra.Command{
		Use:   "quote-remove",
		Short: "Price a withdrawal",
		RunE:  run(runLiquidityQuoteRemove),
	}
	quoteRemoveCmd.Flags().String("position", "", "position id")
	quoteRemoveCmd.Flags().Float64("percent", 100, "share of the position to withdraw, 0.01 to 100")

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Withdraw from a position",
		RunE:  run(runLiquidityRemove),
	}
	removeCmd.Flags().String("position", "", "position id")
	removeCmd.Flags().String("owner", "", "position owner; checked when given")
	removeCmd.Flags().Float64("percent", 100, "share of the position to withdraw, 0.01 to 100")
	removeCmd.Flags().StringSlice("min", nil, "token=amount payout floors")

	positionCmd := &cobra.Command{
		Use:   "position <position-id>",
		Short: "Show a position",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runLiquidityPosition),
	}

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List positions by owner or by pool",
		Args:  cobra.NoArgs,
		RunE:  run(runLiquidityPositions),
	}
	positionsCmd.Flags().String("owner", "", "owner address")
	positionsCmd.Flags().String("pool", "", "pool id")

	liquidityCmd.AddCommand(quoteAddCmd, addCmd, quoteRemoveCmd, removeCmd, positionCmd, positionsCmd)
	return liquidityCmd
}

// parseTokenAmounts reads "token=amount" pairs.
func parseTokenAmounts(values []string) ([]engine.TokenAmount, error) {
	out := make([]engine.TokenAmount, 0, len(values))
	for _, value := range values {
		token, amount, ok := strings.Cut(value, "=")
		if !ok || token == "" || amount == "" {
			return nil, fmt.Errorf("invalid token amount %q, want token=amount", value)
		}
		out = append(out, engine.TokenAmount{TokenAddress: strings.TrimSpace(token), Amount: strings.TrimSpace(amount)})
	}
	return out, nil
}

func runLiquidityQuoteAdd(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	poolID, _ := cmd.Flags().GetString("pool")
	raw, _ := cmd.Flags().GetStringSlice("amount")
	amounts, err := parseTokenAmounts(raw)
	if err != nil {
		return err
	}
	quote, err := a.engine.CalculateAddLiquidityQuote(ctx, poolID, amounts)
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}

func runLiquidityAdd(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	flags := cmd.Flags()
	poolID, _ := flags.GetString("pool")
	provider, _ := flags.GetString("provider")
	minLP, _ := flags.GetString("min-lp")
	raw, _ := flags.GetStringSlice("amount")
	amounts, err := parseTokenAmounts(raw)
	if err != nil {
		return err
	}

	req := engine.AddLiquidityRequest{
		PoolID:      poolID,
		Provider:    provider,
		Amounts:     amounts,
		MinLPTokens: minLP,
	}
	if flags.Changed("tick-lower") {
		lower, _ := flags.GetInt32("tick-lower")
		req.TickLower = &lower
	}
	if flags.Changed("tick-upper") {
		upper, _ := flags.GetInt32("tick-upper")
		req.TickUpper = &upper
	}

	position, quote, err := a.engine.AddLiquidity(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"position": position, "quote": quote})
}

func runLiquidityQuoteRemove(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	positionID, _ := cmd.Flags().GetString("position")
	percent, _ := cmd.Flags().GetFloat64("percent")
	quote, err := a.engine.CalculateRemoveLiquidityQuote(ctx, positionID, percent)
	if err != nil {
		return err
	}
	return printJSON(cmd, quote)
}

func runLiquidityRemove(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	flags := cmd.Flags()
	positionID, _ := flags.GetString("position")
	owner, _ := flags.GetString("owner")
	percent, _ := flags.GetFloat64("percent")
	raw, _ := flags.GetStringSlice("min")
	mins, err := parseTokenAmounts(raw)
	if err != nil {
		return err
	}

	position, quote, err := a.engine.RemoveLiquidity(ctx, engine.RemoveLiquidityRequest{
		PositionID: positionID,
		Owner:      owner,
		Percentage: percent,
		MinAmounts: mins,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{"position": position, "quote": quote})
}

func runLiquidityPosition(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	position, err := a.engine.GetPosition(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, position)
}

func runLiquidityPositions(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	poolID, _ := cmd.Flags().GetString("pool")

	var (
		positions []model.Position
		err       error
	)
	switch {
	case owner != "" && poolID != "":
		return fmt.Errorf("pass either --owner or --pool, not both")
	case owner != "":
		positions, err = a.engine.GetPositionsByOwner(ctx, owner)
	case poolID != "":
		positions, err = a.engine.GetPositionsByPool(ctx, poolID)
	default:
		return fmt.Errorf("--owner or --pool is required")
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, positions)
}
