package model

import "time"

type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusCompleted SwapStatus = "completed"
	SwapStatusFailed    SwapStatus = "failed"
)

// Swap is the append-only record of one swap attempt.
type Swap struct {
	ID               string     `json:"id"`
	PoolID           string     `json:"pool_id"`
	TxHash           string     `json:"tx_hash"`
	TraderAddress    string     `json:"trader_address"`
	TokenInAddress   string     `json:"token_in_address"`
	TokenInSymbol    string     `json:"token_in_symbol"`
	TokenOutAddress  string     `json:"token_out_address"`
	TokenOutSymbol   string     `json:"token_out_symbol"`
	AmountIn         string     `json:"amount_in"`
	AmountOut        string     `json:"amount_out"`
	MinimumAmountOut string     `json:"minimum_amount_out"`
	FeeAmount        string     `json:"fee_amount"`
	PriceImpactBps   uint32     `json:"price_impact_bps"`
	ExecutionPrice   string     `json:"execution_price"`
	RoutePath        []string   `json:"route_path"`
	MEVProtected     bool       `json:"mev_protected"`
	Status           SwapStatus `json:"status"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
