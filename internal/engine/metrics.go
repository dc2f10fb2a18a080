package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/oracle"
)

var (
	daysPerYear = decimal.NewFromInt(365)
	hundred     = decimal.NewFromInt(100)
)

// GetPoolMetrics derives APY, utilization and volatility for a pool.
// Volume and fees are valued at the decimals of the pool's first asset.
func (e *Engine) GetPoolMetrics(ctx context.Context, poolID string) (model.PoolMetrics, error) {
	pool, err := loadPool(ctx, e.store, poolID)
	if err != nil {
		return model.PoolMetrics{}, err
	}
	candles, err := e.store.ListCandles(ctx, poolID, oracle.IntervalHour, oracle.HistoryWindow)
	if err != nil {
		return model.PoolMetrics{}, fmt.Errorf("load candles %s: %w", poolID, err)
	}

	var decimals uint8
	if len(pool.Assets) > 0 {
		decimals = pool.Assets[0].Decimals
	}
	volume, err := fixedpoint.ParseAmount(pool.Pool.Volume24h)
	if err != nil {
		return model.PoolMetrics{}, fmt.Errorf("volume of %s: %w", poolID, err)
	}
	fees, err := fixedpoint.ParseAmount(pool.Pool.Fees24h)
	if err != nil {
		return model.PoolMetrics{}, fmt.Errorf("fees of %s: %w", poolID, err)
	}

	metrics := model.PoolMetrics{
		PoolID:     poolID,
		TVLUSD:     pool.Pool.TVLUSD,
		Volume24h:  pool.Pool.Volume24h,
		Fees24h:    pool.Pool.Fees24h,
		Volatility: oracle.Volatility(candles),
	}
	tvl := fixedpoint.ParseDecimal(pool.Pool.TVLUSD)
	if tvl.IsPositive() {
		feeValue := fixedpoint.Value(fees, decimals)
		volumeValue := fixedpoint.Value(volume, decimals)
		metrics.APY = feeValue.Mul(daysPerYear).Div(tvl).Mul(hundred).InexactFloat64()
		metrics.UtilizationRate = volumeValue.Div(tvl).Mul(hundred).InexactFloat64()
	}
	return metrics, nil
}
