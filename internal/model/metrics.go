package model

import "time"

// PoolMetrics is the derived performance view of a pool.
type PoolMetrics struct {
	PoolID          string  `json:"pool_id"`
	TVLUSD          string  `json:"tvl_usd"`
	Volume24h       string  `json:"volume_24h"`
	Fees24h         string  `json:"fees_24h"`
	APY             float64 `json:"apy"`
	Volatility      float64 `json:"volatility"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// DexStats summarises every pool in the ledger.
type DexStats struct {
	TotalPools              int    `json:"total_pools"`
	TotalTVLUSD             string `json:"total_tvl_usd"`
	TotalVolume24h          string `json:"total_volume_24h"`
	TotalFees24h            string `json:"total_fees_24h"`
	TotalSwaps24h           uint64 `json:"total_swaps_24h"`
	TotalLiquidityProviders uint64 `json:"total_liquidity_providers"`
}

type PriceDirection string

const (
	PriceUp     PriceDirection = "up"
	PriceDown   PriceDirection = "down"
	PriceStable PriceDirection = "stable"
)

// PricePrediction is a trend extrapolation over recent hourly closes.
// Price is zero when there are too few candles to extrapolate.
type PricePrediction struct {
	PoolID      string         `json:"pool_id"`
	Price       string         `json:"price"`
	Trend       string         `json:"trend"`
	Confidence  int            `json:"confidence"`
	Direction   PriceDirection `json:"direction"`
	Samples     int            `json:"samples"`
	GeneratedAt time.Time      `json:"generated_at"`
}
