package model

import "time"

type BreakerStatus string

const (
	BreakerStatusNormal    BreakerStatus = "normal"
	BreakerStatusTriggered BreakerStatus = "triggered"
)

// CircuitBreaker is the authoritative halt state of a pool.
type CircuitBreaker struct {
	PoolID                  string        `json:"pool_id"`
	Status                  BreakerStatus `json:"status"`
	CooldownDurationMinutes int           `json:"cooldown_duration_minutes"`
	CooldownEndsAt          *time.Time    `json:"cooldown_ends_at,omitempty"`
	LastTriggeredAt         *time.Time    `json:"last_triggered_at,omitempty"`
	LastReason              string        `json:"last_reason,omitempty"`
	TriggerCount24h         int           `json:"trigger_count_24h"`
	TriggerCountAllTime     int           `json:"trigger_count_all_time"`
}
