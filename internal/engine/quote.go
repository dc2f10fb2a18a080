package engine

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityEngine/internal/curve"
	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/model"
)

const pricePlaces = 18

type QuoteRequest struct {
	PoolID   string
	TokenIn  string
	TokenOut string
	AmountIn string
	// SlippageBps falls back to the engine default when nil.
	SlippageBps *uint32
}

// SwapQuote is a priced but unexecuted swap. PriceImpact is a fraction.
type SwapQuote struct {
	PoolID           string   `json:"pool_id"`
	AmountIn         string   `json:"amount_in"`
	AmountOut        string   `json:"amount_out"`
	MinimumAmountOut string   `json:"minimum_amount_out"`
	Fee              string   `json:"fee"`
	PriceImpact      float64  `json:"price_impact"`
	PriceImpactBps   uint32   `json:"price_impact_bps"`
	Route            []string `json:"route"`
	ExecutionPrice   string   `json:"execution_price"`
	SpotPrice        string   `json:"spot_price"`
	EstimatedGas     uint64   `json:"estimated_gas"`
}

// pricedSwap carries everything a quote computed so the executor can
// settle the same numbers.
type pricedSwap struct {
	pool     model.PoolWithAssets
	in       model.PoolAsset
	out      model.PoolAsset
	amountIn *uint256.Int
	result   curve.Output
	impact   curve.Impact
}

// CalculateSwapQuote prices a swap against current reserves without
// touching the ledger.
func (e *Engine) CalculateSwapQuote(ctx context.Context, req QuoteRequest) (SwapQuote, error) {
	amountIn, err := fixedpoint.ParseAmount(req.AmountIn)
	if err != nil {
		return SwapQuote{}, err
	}
	slippage := e.slippage
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	if slippage > fixedpoint.FeePrecision {
		return SwapQuote{}, fmt.Errorf("%w: slippage %d bps", ErrInvalidAmount, slippage)
	}

	pool, err := loadPool(ctx, e.store, req.PoolID)
	if err != nil {
		return SwapQuote{}, err
	}
	priced, err := e.priceSwap(ctx, e.store, pool, req.TokenIn, req.TokenOut, amountIn)
	if err != nil {
		return SwapQuote{}, err
	}
	return priced.quote(slippage)
}

func (p pricedSwap) quote(slippageBps uint32) (SwapQuote, error) {
	minOut, err := fixedpoint.ApplySlippage(p.result.AmountOut, slippageBps)
	if err != nil {
		return SwapQuote{}, err
	}
	return SwapQuote{
		PoolID:           p.pool.Pool.ID,
		AmountIn:         p.amountIn.Dec(),
		AmountOut:        p.result.AmountOut.Dec(),
		MinimumAmountOut: minOut.Dec(),
		Fee:              p.result.Fee.Dec(),
		PriceImpact:      p.impact.Float64(),
		PriceImpactBps:   p.impact.Bps(),
		Route:            []string{p.in.TokenAddress, p.out.TokenAddress},
		ExecutionPrice:   p.impact.ExecutionPrice.FloatString(pricePlaces),
		SpotPrice:        p.impact.SpotPrice.FloatString(pricePlaces),
		EstimatedGas:     estimatedSwapGas,
	}, nil
}

// priceSwap runs the pool's curve for tokenIn -> tokenOut.
func (e *Engine) priceSwap(ctx context.Context, r ledger.Reader, pool model.PoolWithAssets, tokenIn, tokenOut string, amountIn *uint256.Int) (pricedSwap, error) {
	if model.SameAddress(tokenIn, tokenOut) {
		return pricedSwap{}, fmt.Errorf("%w: token in and out are both %s", ErrInvalidTokenPair, tokenIn)
	}
	in, ok := pool.Asset(tokenIn)
	if !ok {
		return pricedSwap{}, fmt.Errorf("%w: %w: token %s not in pool %s", ErrPoolNotFound, ErrInvalidTokenPair, tokenIn, pool.Pool.ID)
	}
	out, ok := pool.Asset(tokenOut)
	if !ok {
		return pricedSwap{}, fmt.Errorf("%w: %w: token %s not in pool %s", ErrPoolNotFound, ErrInvalidTokenPair, tokenOut, pool.Pool.ID)
	}

	strategy, err := curve.ForPoolType(pool.Pool.PoolType)
	if err != nil {
		return pricedSwap{}, err
	}
	reserveIn, err := fixedpoint.ParseAmount(in.Reserve)
	if err != nil {
		return pricedSwap{}, fmt.Errorf("reserve of %s: %w", in.TokenAddress, err)
	}
	reserveOut, err := fixedpoint.ParseAmount(out.Reserve)
	if err != nil {
		return pricedSwap{}, fmt.Errorf("reserve of %s: %w", out.TokenAddress, err)
	}

	input := curve.Input{
		AmountIn:   amountIn,
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		FeeTierBps: pool.Pool.FeeTierBps,
		WeightIn:   in.Weight,
		WeightOut:  out.Weight,
	}
	if pool.Pool.PoolType == model.PoolTypeConcentrated {
		if input.Ticks, err = loadTicks(ctx, r, pool.Pool.ID); err != nil {
			return pricedSwap{}, err
		}
	}

	result, err := strategy.Quote(input)
	if err != nil {
		return pricedSwap{}, fmt.Errorf("price swap in pool %s: %w", pool.Pool.ID, err)
	}
	if !result.AmountOut.Lt(reserveOut) {
		return pricedSwap{}, fmt.Errorf("%w: out %s against reserve %s in pool %s", ErrInsufficientLiquidity, result.AmountOut.Dec(), reserveOut.Dec(), pool.Pool.ID)
	}
	impact := curve.PriceImpact(amountIn, result.AmountOut, reserveIn, reserveOut)
	if bps := impact.Bps(); bps > maxPriceImpactBps {
		e.logger.Warn("high price impact",
			zap.String("pool", pool.Pool.ID),
			zap.String("amount_in", amountIn.Dec()),
			zap.Uint32("price_impact_bps", bps),
		)
	}
	return pricedSwap{
		pool:     pool,
		in:       in,
		out:      out,
		amountIn: amountIn,
		result:   result,
		impact:   impact,
	}, nil
}

func loadTicks(ctx context.Context, r ledger.Reader, poolID string) ([]curve.Tick, error) {
	stored, err := r.GetPoolTicks(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("load ticks %s: %w", poolID, err)
	}
	ticks := make([]curve.Tick, 0, len(stored))
	for _, t := range stored {
		liquidity, err := fixedpoint.ParseAmount(t.LiquidityGross)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", t.TickIndex, err)
		}
		ticks = append(ticks, curve.Tick{Index: t.TickIndex, Liquidity: liquidity})
	}
	return ticks, nil
}

// impactDecimal converts the exact impact fraction for decimal arithmetic.
func impactDecimal(impact curve.Impact) decimal.Decimal {
	if impact.Fraction == nil {
		return decimal.Zero
	}
	return fixedpoint.ParseDecimal(impact.Fraction.FloatString(pricePlaces))
}
