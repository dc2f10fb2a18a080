package model

import "time"

type MevEventType string

const (
	MevSandwichDetected MevEventType = "sandwich_detected"
	MevFrontrunDetected MevEventType = "frontrun_detected"
)

// MevEvent is an advisory detection record.
type MevEvent struct {
	ID               string       `json:"id"`
	PoolID           string       `json:"pool_id"`
	TraderAddress    string       `json:"trader_address"`
	EventType        MevEventType `json:"event_type"`
	Severity         string       `json:"severity"`
	EstimatedLossUSD string       `json:"estimated_loss_usd"`
	PreventedLossUSD string       `json:"prevented_loss_usd"`
	DetectionMethod  string       `json:"detection_method"`
	AIConfidence     int          `json:"ai_confidence"`
	Status           string       `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
}
