// Package breaker implements the per-pool halt and cooldown state machine.
//
// The ledger record is authoritative. An LRU of cooldown deadlines sits in
// front of it so a halted pool can be refused without a ledger read; the
// cache is stale-tolerant and is only ever populated from a triggered record.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is active - pool temporarily halted")

const (
	defaultCacheSize = 1024
	defaultCooldown  = 30 * time.Minute
)

// Store persists breaker records. Get reports false when the pool has none.
type Store interface {
	GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, bool, error)
	PutCircuitBreaker(ctx context.Context, breaker model.CircuitBreaker) error
}

// Config controls breaker defaults.
type Config struct {
	CacheSize       int
	DefaultCooldown time.Duration
}

// Breaker guards mutating pool operations.
type Breaker struct {
	store  Store
	cfg    Config
	cache  *lru.Cache[string, time.Time]
	logger *zap.Logger
	now    func() time.Time
	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports fast-path effectiveness.
type CacheStats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

func New(cfg Config, store Store, logger *zap.Logger, now func() time.Time) (*Breaker, error) {
	if store == nil {
		return nil, fmt.Errorf("breaker store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = defaultCooldown
	}
	cache, err := lru.New[string, time.Time](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("breaker cache: %w", err)
	}
	return &Breaker{store: store, cfg: cfg, cache: cache, logger: logger, now: now}, nil
}

// Check fails with ErrCircuitBreakerOpen while the pool is cooling down and
// resets an expired breaker back to normal.
func (b *Breaker) Check(ctx context.Context, poolID string) error {
	now := b.now()
	if until, ok := b.cache.Get(poolID); ok {
		if now.Before(until) {
			b.hits.Add(1)
			return openError(poolID, until)
		}
		b.cache.Remove(poolID)
	}
	b.misses.Add(1)

	record, found, err := b.store.GetCircuitBreaker(ctx, poolID)
	if err != nil {
		return fmt.Errorf("load circuit breaker %s: %w", poolID, err)
	}
	if !found || record.Status != model.BreakerStatusTriggered {
		return nil
	}

	var until time.Time
	if record.CooldownEndsAt != nil {
		until = *record.CooldownEndsAt
	}
	if now.Before(until) {
		b.cache.Add(poolID, until)
		return openError(poolID, until)
	}

	record.Status = model.BreakerStatusNormal
	record.TriggerCount24h = 0
	if err := b.store.PutCircuitBreaker(ctx, record); err != nil {
		return fmt.Errorf("reset circuit breaker %s: %w", poolID, err)
	}
	b.cache.Remove(poolID)
	b.logger.Info("circuit breaker reset", zap.String("pool", poolID))
	return nil
}

// Trigger halts a pool for its cooldown duration. A pool without a breaker
// record gets one with the configured default cooldown.
func (b *Breaker) Trigger(ctx context.Context, poolID, reason string) (model.CircuitBreaker, error) {
	record, found, err := b.store.GetCircuitBreaker(ctx, poolID)
	if err != nil {
		return model.CircuitBreaker{}, fmt.Errorf("load circuit breaker %s: %w", poolID, err)
	}
	if !found {
		record = b.Default(poolID)
	}

	now := b.now().UTC()
	until := now.Add(time.Duration(record.CooldownDurationMinutes) * time.Minute)
	record.Status = model.BreakerStatusTriggered
	record.LastTriggeredAt = &now
	record.CooldownEndsAt = &until
	record.LastReason = reason
	record.TriggerCount24h++
	record.TriggerCountAllTime++

	if err := b.store.PutCircuitBreaker(ctx, record); err != nil {
		return model.CircuitBreaker{}, fmt.Errorf("trigger circuit breaker %s: %w", poolID, err)
	}
	b.cache.Add(poolID, until)
	b.logger.Warn("circuit breaker triggered",
		zap.String("pool", poolID),
		zap.String("reason", reason),
		zap.Time("cooldown_ends_at", until),
	)
	return record, nil
}

// Status returns the ledger record without side effects. Pools that were
// never given a record report the default normal breaker.
func (b *Breaker) Status(ctx context.Context, poolID string) (model.CircuitBreaker, error) {
	record, found, err := b.store.GetCircuitBreaker(ctx, poolID)
	if err != nil {
		return model.CircuitBreaker{}, fmt.Errorf("load circuit breaker %s: %w", poolID, err)
	}
	if !found {
		return b.Default(poolID), nil
	}
	return record, nil
}

// Default is a fresh normal breaker for a pool.
func (b *Breaker) Default(poolID string) model.CircuitBreaker {
	return model.CircuitBreaker{
		PoolID:                  poolID,
		Status:                  model.BreakerStatusNormal,
		CooldownDurationMinutes: int(b.cfg.DefaultCooldown / time.Minute),
	}
}

func (b *Breaker) Stats() CacheStats {
	return CacheStats{Size: b.cache.Len(), Hits: b.hits.Load(), Misses: b.misses.Load()}
}

// Forget drops a pool from the fast-path cache.
func (b *Breaker) Forget(poolID string) {
	b.cache.Remove(poolID)
}

func openError(poolID string, until time.Time) error {
	return fmt.Errorf("%w: pool %s until %s", ErrCircuitBreakerOpen, poolID, until.UTC().Format(time.RFC3339))
}
