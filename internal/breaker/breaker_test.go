package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"liquidityEngine/internal/model"
)

type memStore struct {
	mu    sync.Mutex
	data  map[string]model.CircuitBreaker
	reads int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]model.CircuitBreaker)}
}

func (s *memStore) GetCircuitBreaker(_ context.Context, poolID string) (model.CircuitBreaker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	b, ok := s.data[poolID]
	return b, ok, nil
}

func (s *memStore) PutCircuitBreaker(_ context.Context, b model.CircuitBreaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[b.PoolID] = b
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newBreaker(t *testing.T, store Store, c *clock) *Breaker {
	t.Helper()
	b, err := New(Config{CacheSize: 8, DefaultCooldown: 30 * time.Minute}, store, nil, c.now)
	if err != nil {
		t.Fatalf("new breaker: %v", err)
	}
	return b
}

func TestCheckWithoutRecordPasses(t *testing.T) {
	b := newBreaker(t, newMemStore(), &clock{t: time.Unix(1_700_000_000, 0)})
	if err := b.Check(context.Background(), "pool-1"); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestTriggerBlocksUntilCooldown(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := newBreaker(t, store, c)

	record, err := b.Trigger(ctx, "pool-1", "volatility spike")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if record.Status != model.BreakerStatusTriggered || record.TriggerCount24h != 1 || record.TriggerCountAllTime != 1 {
		t.Fatalf("unexpected record after trigger: %+v", record)
	}
	if record.CooldownDurationMinutes != 30 {
		t.Fatalf("expected default cooldown 30, got %d", record.CooldownDurationMinutes)
	}

	c.t = c.t.Add(29 * time.Minute)
	if err := b.Check(ctx, "pool-1"); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected breaker open, got %v", err)
	}

	c.t = c.t.Add(2 * time.Minute)
	if err := b.Check(ctx, "pool-1"); err != nil {
		t.Fatalf("check after cooldown: %v", err)
	}
	stored := store.data["pool-1"]
	if stored.Status != model.BreakerStatusNormal || stored.TriggerCount24h != 0 || stored.TriggerCountAllTime != 1 {
		t.Fatalf("unexpected record after reset: %+v", stored)
	}
}

func TestCachedTripSkipsLedger(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	b := newBreaker(t, store, &clock{t: time.Unix(1_700_000_000, 0)})

	if _, err := b.Trigger(ctx, "pool-1", "manual"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	reads := store.reads
	for i := 0; i < 3; i++ {
		if err := b.Check(ctx, "pool-1"); !errors.Is(err, ErrCircuitBreakerOpen) {
			t.Fatalf("expected breaker open, got %v", err)
		}
	}
	if store.reads != reads {
		t.Fatalf("expected cached checks to skip the ledger, reads %d -> %d", reads, store.reads)
	}
	if stats := b.Stats(); stats.Hits != 3 {
		t.Fatalf("expected 3 cache hits, got %+v", stats)
	}
}

func TestLedgerTripPopulatesCache(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	until := c.t.Add(10 * time.Minute)
	store.data["pool-2"] = model.CircuitBreaker{
		PoolID:                  "pool-2",
		Status:                  model.BreakerStatusTriggered,
		CooldownDurationMinutes: 10,
		CooldownEndsAt:          &until,
		TriggerCount24h:         2,
	}
	b := newBreaker(t, store, c)

	if err := b.Check(ctx, "pool-2"); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected breaker open, got %v", err)
	}
	if stats := b.Stats(); stats.Size != 1 {
		t.Fatalf("expected cache entry, got %+v", stats)
	}
}

func TestTriggerUsesRecordCooldown(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.data["pool-3"] = model.CircuitBreaker{PoolID: "pool-3", Status: model.BreakerStatusNormal, CooldownDurationMinutes: 5, TriggerCountAllTime: 4}
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := newBreaker(t, store, c)

	record, err := b.Trigger(ctx, "pool-3", "oracle deviation")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !record.CooldownEndsAt.Equal(c.t.Add(5 * time.Minute)) {
		t.Fatalf("unexpected cooldown end %v", record.CooldownEndsAt)
	}
	if record.TriggerCountAllTime != 5 || record.LastReason != "oracle deviation" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestStatusDefaultsToNormal(t *testing.T) {
	b := newBreaker(t, newMemStore(), &clock{t: time.Unix(1_700_000_000, 0)})
	record, err := b.Status(context.Background(), "pool-9")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if record.Status != model.BreakerStatusNormal || record.PoolID != "pool-9" {
		t.Fatalf("unexpected default record %+v", record)
	}
}
