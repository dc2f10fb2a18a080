package model

import "time"

// UserAnalytics aggregates one trader's activity. USD fields are decimal strings.
type UserAnalytics struct {
	UserAddress               string     `json:"user_address"`
	TotalSwaps                uint64     `json:"total_swaps"`
	TotalVolumeUSD            string     `json:"total_volume_usd"`
	TotalFeePaidUSD           string     `json:"total_fee_paid_usd"`
	TotalLiquidityProvidedUSD string     `json:"total_liquidity_provided_usd"`
	TraderTier                string     `json:"trader_tier"`
	FeeDiscountBps            uint32     `json:"fee_discount_bps"`
	FirstTradeAt              *time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt               *time.Time `json:"last_trade_at,omitempty"`
}
