package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

// SwapRoute is the best single-pool path for a token pair.
type SwapRoute struct {
	Route           []string  `json:"route"`
	EstimatedOutput string    `json:"estimated_output"`
	TotalFees       string    `json:"total_fees"`
	Quote           SwapQuote `json:"quote"`
	PoolsScanned    int       `json:"pools_scanned"`
}

// GetOptimalSwapRoute quotes every active pool holding both tokens and
// returns the one with the largest output. Pools that fail to quote are
// skipped.
func (e *Engine) GetOptimalSwapRoute(ctx context.Context, tokenIn, tokenOut, amountIn string) (SwapRoute, error) {
	if _, err := fixedpoint.ParseAmount(amountIn); err != nil {
		return SwapRoute{}, err
	}
	pools, err := e.store.ListPools(ctx, e.cfg.RouteScanLimit)
	if err != nil {
		return SwapRoute{}, fmt.Errorf("list pools: %w", err)
	}
	candidates := make([]model.Pool, 0, len(pools))
	for _, pool := range pools {
		if pool.Status == model.PoolStatusActive {
			candidates = append(candidates, pool)
		}
	}

	quotes := make([]*SwapQuote, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RouteConcurrency)
	for i, pool := range candidates {
		g.Go(func() error {
			withAssets, err := loadPool(gctx, e.store, pool.ID)
			if err != nil {
				return err
			}
			if _, ok := withAssets.Asset(tokenIn); !ok {
				return nil
			}
			if _, ok := withAssets.Asset(tokenOut); !ok {
				return nil
			}
			quote, err := e.CalculateSwapQuote(gctx, QuoteRequest{
				PoolID:   pool.ID,
				TokenIn:  tokenIn,
				TokenOut: tokenOut,
				AmountIn: amountIn,
			})
			if err != nil {
				e.logger.Debug("route candidate skipped", zap.String("pool", pool.ID), zap.Error(err))
				return nil
			}
			quotes[i] = &quote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SwapRoute{}, fmt.Errorf("scan routes: %w", err)
	}

	var best *SwapQuote
	for _, quote := range quotes {
		if quote == nil {
			continue
		}
		if best == nil || amountGreater(quote.AmountOut, best.AmountOut) {
			best = quote
		}
	}
	if best == nil || best.AmountOut == "0" {
		return SwapRoute{}, fmt.Errorf("%w: %s -> %s", ErrNoRoute, tokenIn, tokenOut)
	}
	return SwapRoute{
		Route:           []string{best.PoolID},
		EstimatedOutput: best.AmountOut,
		TotalFees:       best.Fee,
		Quote:           *best,
		PoolsScanned:    len(candidates),
	}, nil
}

func amountGreater(a, b string) bool {
	x, err := fixedpoint.ParseAmount(a)
	if err != nil {
		return false
	}
	y, err := fixedpoint.ParseAmount(b)
	if err != nil {
		return true
	}
	return x.Gt(y)
}
