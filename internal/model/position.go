package model

import "time"

type PositionStatus string

const (
	PositionStatusActive    PositionStatus = "active"
	PositionStatusWithdrawn PositionStatus = "withdrawn"
)

// Full-range bounds used for non-concentrated positions.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Position tracks one owner's LP shares in one pool.
type Position struct {
	ID             string         `json:"id"`
	PoolID         string         `json:"pool_id"`
	OwnerAddress   string         `json:"owner_address"`
	LPTokenAmount  string         `json:"lp_token_amount"`
	Liquidity      string         `json:"liquidity"`
	TickLower      int32          `json:"tick_lower"`
	TickUpper      int32          `json:"tick_upper"`
	Amount0        string         `json:"amount0"`
	Amount1        string         `json:"amount1"`
	ValueUSD       string         `json:"value_usd"`
	IsConcentrated bool           `json:"is_concentrated"`
	Status         PositionStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ClosedAt       *time.Time     `json:"closed_at,omitempty"`
}
