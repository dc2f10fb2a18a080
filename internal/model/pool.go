package model

import "time"

// PoolType selects the pricing curve of a pool.
type PoolType string

const (
	PoolTypeConstantProduct PoolType = "constant_product"
	PoolTypeStandard        PoolType = "standard"
	PoolTypeStable          PoolType = "stable"
	PoolTypeConcentrated    PoolType = "concentrated"
	PoolTypeMultiAsset      PoolType = "multi_asset"
	PoolTypeWeighted        PoolType = "weighted"
)

// PoolStatus gates mutating operations.
type PoolStatus string

const (
	PoolStatusActive PoolStatus = "active"
	PoolStatusPaused PoolStatus = "paused"
	PoolStatusHalted PoolStatus = "halted"
)

// Pool is a liquidity pool record. Amount fields are base-unit integer strings.
type Pool struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	PoolType             PoolType   `json:"pool_type"`
	FeeTierBps           uint32     `json:"fee_tier_bps"`
	Status               PoolStatus `json:"status"`
	LPTokenSupply        string     `json:"lp_token_supply"`
	TVLUSD               string     `json:"tvl_usd"`
	Volume24h            string     `json:"volume_24h"`
	Fees24h              string     `json:"fees_24h"`
	SwapCount24h         uint64     `json:"swap_count_24h"`
	LPCount              uint64     `json:"lp_count"`
	MEVProtectionEnabled bool       `json:"mev_protection_enabled"`
	AIRouteOptimization  bool       `json:"ai_route_optimization"`
	LastSwapAt           *time.Time `json:"last_swap_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PoolAsset is one token leg of a pool.
type PoolAsset struct {
	ID           string `json:"id"`
	PoolID       string `json:"pool_id"`
	AssetIndex   int    `json:"asset_index"`
	TokenAddress string `json:"token_address"`
	TokenSymbol  string `json:"token_symbol"`
	Decimals     uint8  `json:"decimals"`
	Reserve      string `json:"reserve"`
	Weight       uint32 `json:"weight"`
}

// PoolTick is a concentrated-liquidity range. LiquidityGross is a
// 1e18-scaled fraction of the pool reserves available in the tick.
type PoolTick struct {
	PoolID         string `json:"pool_id"`
	TickIndex      int32  `json:"tick_index"`
	LiquidityGross string `json:"liquidity_gross"`
}

// PoolWithAssets bundles a pool and its ordered assets.
type PoolWithAssets struct {
	Pool   Pool        `json:"pool"`
	Assets []PoolAsset `json:"assets"`
}

// Asset returns the asset for a token address.
func (p PoolWithAssets) Asset(token string) (PoolAsset, bool) {
	for _, asset := range p.Assets {
		if SameAddress(asset.TokenAddress, token) {
			return asset, true
		}
	}
	return PoolAsset{}, false
}
