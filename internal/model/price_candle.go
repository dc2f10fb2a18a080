package model

import "time"

// PriceCandle stores an OHLC window of the asset0/asset1 reserve price.
type PriceCandle struct {
	PoolID      string    `json:"pool_id"`
	Interval    string    `json:"interval"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Open        string    `json:"open"`
	High        string    `json:"high"`
	Low         string    `json:"low"`
	Close       string    `json:"close"`
	Volume      string    `json:"volume"`
	TradeCount  uint64    `json:"trade_count"`
}
