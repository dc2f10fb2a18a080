package model

// TwapObservation is one cumulative price sample. Append-only.
type TwapObservation struct {
	PoolID               string `json:"pool_id"`
	ObservationIndex     uint64 `json:"observation_index"`
	BlockTimestamp       int64  `json:"block_timestamp"`
	Price0CumulativeX128 string `json:"price0_cumulative_x128"`
	Price1CumulativeX128 string `json:"price1_cumulative_x128"`
}
