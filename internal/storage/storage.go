package storage

import (
	"time"

	"liquidityEngine/internal/model"
)

// EntryKind labels an audit journal line.
type EntryKind string

const (
	EntrySwapCompleted    EntryKind = "swap_completed"
	EntrySwapFailed       EntryKind = "swap_failed"
	EntryMevDetected      EntryKind = "mev_detected"
	EntryLiquidityAdded   EntryKind = "liquidity_added"
	EntryLiquidityRemoved EntryKind = "liquidity_removed"
	EntryBreakerTriggered EntryKind = "breaker_triggered"
)

// Entry is one audit journal line. Exactly one payload is set.
type Entry struct {
	Kind     EntryKind             `json:"kind"`
	PoolID   string                `json:"pool_id"`
	At       time.Time             `json:"at"`
	Swap     *model.Swap           `json:"swap,omitempty"`
	MevEvent *model.MevEvent       `json:"mev_event,omitempty"`
	Position *model.Position       `json:"position,omitempty"`
	Breaker  *model.CircuitBreaker `json:"breaker,omitempty"`
}

// Journal is a sink for audit entries.
type Journal interface {
	Append(entries []Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Append([]Entry) error { return nil }
