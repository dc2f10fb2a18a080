package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityEngine/internal/breaker"
	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/oracle"
	"liquidityEngine/internal/storage"
)

// TriggerCircuitBreaker halts a pool until its cooldown elapses.
func (e *Engine) TriggerCircuitBreaker(ctx context.Context, poolID, reason string) (model.CircuitBreaker, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return model.CircuitBreaker{}, err
	}
	release, err := e.lockPool(ctx, poolID)
	if err != nil {
		return model.CircuitBreaker{}, err
	}
	defer release()

	record, err := e.breaker.Trigger(ctx, poolID, reason)
	if err != nil {
		return model.CircuitBreaker{}, err
	}
	e.record(storage.Entry{Kind: storage.EntryBreakerTriggered, PoolID: poolID, At: e.now().UTC(), Breaker: &record})
	return record, nil
}

func (e *Engine) GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return model.CircuitBreaker{}, err
	}
	return e.breaker.Status(ctx, poolID)
}

// GetPriceHistory returns hourly candles, newest first.
func (e *Engine) GetPriceHistory(ctx context.Context, poolID string, limit int) ([]model.PriceCandle, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return e.store.ListCandles(ctx, poolID, oracle.IntervalHour, limit)
}

// GetTwapObservations returns cumulative price samples, newest first.
func (e *Engine) GetTwapObservations(ctx context.Context, poolID string, limit int) ([]model.TwapObservation, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return e.store.ListTwap(ctx, poolID, limit)
}

// GetMevEvents lists findings for one pool, or for every pool when poolID is empty.
func (e *Engine) GetMevEvents(ctx context.Context, poolID string, limit int) ([]model.MevEvent, error) {
	return e.store.ListMevEvents(ctx, poolID, limit)
}

// GetUserAnalytics returns a trader's aggregates. Unknown traders get an
// empty bronze record.
func (e *Engine) GetUserAnalytics(ctx context.Context, address string) (model.UserAnalytics, error) {
	address, err := normalizeAddress("user", address)
	if err != nil {
		return model.UserAnalytics{}, err
	}
	analytics, err := e.store.GetUserAnalytics(ctx, address)
	if errors.Is(err, ledger.ErrNotFound) {
		tier, discount := TraderTier(decimal.Zero)
		return model.UserAnalytics{
			UserAddress:               address,
			TotalVolumeUSD:            decimal.Zero.StringFixed(fixedpoint.USDScale),
			TotalFeePaidUSD:           decimal.Zero.StringFixed(feePaidPlaces),
			TotalLiquidityProvidedUSD: decimal.Zero.StringFixed(fixedpoint.USDScale),
			TraderTier:                tier,
			FeeDiscountBps:            discount,
		}, nil
	}
	if err != nil {
		return model.UserAnalytics{}, fmt.Errorf("load analytics %s: %w", address, err)
	}
	return analytics, nil
}

// GetLeaderboard ranks traders by lifetime volume.
func (e *Engine) GetLeaderboard(ctx context.Context, limit int) ([]model.UserAnalytics, error) {
	return e.store.TopTraders(ctx, limit)
}

func (e *Engine) GetSwap(ctx context.Context, swapID string) (model.Swap, error) {
	swap, err := e.store.GetSwap(ctx, swapID)
	if err != nil {
		return model.Swap{}, notFound(err, ErrSwapNotFound, swapID)
	}
	return swap, nil
}

// GetSwapsByPool returns a pool's swaps, newest first.
func (e *Engine) GetSwapsByPool(ctx context.Context, poolID string, limit int) ([]model.Swap, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return e.store.RecentSwaps(ctx, poolID, limit)
}

func (e *Engine) GetPosition(ctx context.Context, positionID string) (model.Position, error) {
	position, err := e.store.GetPosition(ctx, positionID)
	if err != nil {
		return model.Position{}, notFound(err, ErrPositionNotFound, positionID)
	}
	return position, nil
}

// GetPositionsByOwner lists an owner's positions in every pool, oldest first.
func (e *Engine) GetPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error) {
	address, err := normalizeAddress("owner", owner)
	if err != nil {
		return nil, err
	}
	return e.store.ListPositionsByOwner(ctx, address)
}

// GetPositionsByPool lists every position of a pool, oldest first.
func (e *Engine) GetPositionsByPool(ctx context.Context, poolID string) ([]model.Position, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return e.store.ListPositionsByPool(ctx, poolID)
}

// GetSwapsByTrader lists a trader's swaps across pools, newest first.
func (e *Engine) GetSwapsByTrader(ctx context.Context, trader string, limit int) ([]model.Swap, error) {
	address, err := normalizeAddress("trader", trader)
	if err != nil {
		return nil, err
	}
	return e.store.SwapsByTrader(ctx, address, limit)
}

// GetRecentSwaps lists swaps across all pools, newest first.
func (e *Engine) GetRecentSwaps(ctx context.Context, limit int) ([]model.Swap, error) {
	return e.store.LatestSwaps(ctx, limit)
}

// GetPricePrediction extrapolates the pool price from its recent hourly
// candles. Results are cached per pool for the configured TTL.
func (e *Engine) GetPricePrediction(ctx context.Context, poolID string) (model.PricePrediction, error) {
	now := e.now().UTC()
	if cached, ok := e.predictions.Get(poolID); ok && now.Sub(cached.GeneratedAt) < e.cfg.PredictionTTL {
		return cached, nil
	}
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return model.PricePrediction{}, err
	}
	candles, err := e.store.ListCandles(ctx, poolID, oracle.IntervalHour, oracle.HistoryWindow)
	if err != nil {
		return model.PricePrediction{}, fmt.Errorf("load candles %s: %w", poolID, err)
	}
	prediction := oracle.Predict(poolID, candles, now)
	e.predictions.Add(poolID, prediction)
	return prediction, nil
}

// BreakerCacheStats exposes the circuit breaker fast-path counters.
func (e *Engine) BreakerCacheStats() breaker.CacheStats {
	return e.breaker.Stats()
}
