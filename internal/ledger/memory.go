package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

// Memory is an in-process Store. When created with a path it loads the
// snapshot on open and rewrites it after every committed Update.
type Memory struct {
	path string
	mu   sync.RWMutex
	st   *state
}

// state is the whole ledger; it is also the snapshot file format.
type state struct {
	Pools     map[string]model.Pool              `json:"pools"`
	Assets    map[string][]model.PoolAsset       `json:"assets"`
	Ticks     map[string][]model.PoolTick        `json:"ticks"`
	Positions map[string]model.Position          `json:"positions"`
	Swaps     map[string]model.Swap              `json:"swaps"`
	PoolSwaps map[string][]string                `json:"pool_swaps"`
	SwapLog   []string                           `json:"swap_log"`
	Breakers  map[string]model.CircuitBreaker    `json:"breakers"`
	Twap      map[string][]model.TwapObservation `json:"twap"`
	Candles   map[string][]model.PriceCandle     `json:"candles"`
	Mev       []model.MevEvent                   `json:"mev_events"`
	Analytics map[string]model.UserAnalytics     `json:"analytics"`
	UpdatedAt string                             `json:"updated_at"`
}

func newState() *state {
	return &state{
		Pools:     make(map[string]model.Pool),
		Assets:    make(map[string][]model.PoolAsset),
		Ticks:     make(map[string][]model.PoolTick),
		Positions: make(map[string]model.Position),
		Swaps:     make(map[string]model.Swap),
		PoolSwaps: make(map[string][]string),
		Breakers:  make(map[string]model.CircuitBreaker),
		Twap:      make(map[string][]model.TwapObservation),
		Candles:   make(map[string][]model.PriceCandle),
		Analytics: make(map[string]model.UserAnalytics),
	}
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	maps.Copy(out, in)
	return out
}

func cloneGroups[T any](in map[string][]T) map[string][]T {
	out := make(map[string][]T, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		Pools:     cloneMap(s.Pools),
		Assets:    cloneGroups(s.Assets),
		Ticks:     cloneGroups(s.Ticks),
		Positions: cloneMap(s.Positions),
		Swaps:     cloneMap(s.Swaps),
		PoolSwaps: cloneGroups(s.PoolSwaps),
		SwapLog:   slices.Clone(s.SwapLog),
		Breakers:  cloneMap(s.Breakers),
		Twap:      cloneGroups(s.Twap),
		Candles:   cloneGroups(s.Candles),
		Mev:       slices.Clone(s.Mev),
		Analytics: cloneMap(s.Analytics),
	}
}

// NewMemory returns an empty store that is never persisted.
func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// OpenFile loads a snapshot store, starting empty when the file is missing.
func OpenFile(path string) (*Memory, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	m := &Memory{path: path, st: newState()}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("stat state file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("state file path is a directory")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	loaded := newState()
	if err := json.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if len(loaded.SwapLog) != len(loaded.Swaps) {
		loaded.rebuildSwapLog()
	}
	m.st = loaded.clone()
	return m, nil
}

// rebuildSwapLog orders swaps by creation time for snapshots written
// before the global log existed.
func (s *state) rebuildSwapLog() {
	swaps := slices.Collect(maps.Values(s.Swaps))
	slices.SortFunc(swaps, func(a, b model.Swap) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	s.SwapLog = make([]string, 0, len(swaps))
	for _, swap := range swaps {
		s.SwapLog = append(s.SwapLog, swap.ID)
	}
}

func (m *Memory) save(st *state) error {
	if m.path == "" {
		return nil
	}
	dir := filepath.Dir(m.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}
	if err := m.save(work); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) read() *state {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

// Committed states are never mutated, so readers can use a snapshot
// pointer without holding the lock.

func (m *Memory) GetPool(ctx context.Context, id string) (model.Pool, error) {
	return m.read().GetPool(ctx, id)
}

func (m *Memory) ListPools(ctx context.Context, limit int) ([]model.Pool, error) {
	return m.read().ListPools(ctx, limit)
}

func (m *Memory) GetPoolAssets(ctx context.Context, poolID string) ([]model.PoolAsset, error) {
	return m.read().GetPoolAssets(ctx, poolID)
}

func (m *Memory) GetPoolTicks(ctx context.Context, poolID string) ([]model.PoolTick, error) {
	return m.read().GetPoolTicks(ctx, poolID)
}

func (m *Memory) GetPosition(ctx context.Context, id string) (model.Position, error) {
	return m.read().GetPosition(ctx, id)
}

func (m *Memory) FindPosition(ctx context.Context, poolID, owner string) (model.Position, error) {
	return m.read().FindPosition(ctx, poolID, owner)
}

func (m *Memory) ListPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error) {
	return m.read().ListPositionsByOwner(ctx, owner)
}

func (m *Memory) ListPositionsByPool(ctx context.Context, poolID string) ([]model.Position, error) {
	return m.read().ListPositionsByPool(ctx, poolID)
}

func (m *Memory) SwapsByTrader(ctx context.Context, trader string, limit int) ([]model.Swap, error) {
	return m.read().SwapsByTrader(ctx, trader, limit)
}

func (m *Memory) LatestSwaps(ctx context.Context, limit int) ([]model.Swap, error) {
	return m.read().LatestSwaps(ctx, limit)
}

func (m *Memory) GetSwap(ctx context.Context, id string) (model.Swap, error) {
	return m.read().GetSwap(ctx, id)
}

func (m *Memory) RecentSwaps(ctx context.Context, poolID string, limit int) ([]model.Swap, error) {
	return m.read().RecentSwaps(ctx, poolID, limit)
}

func (m *Memory) GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, error) {
	return m.read().GetCircuitBreaker(ctx, poolID)
}

func (m *Memory) LatestTwap(ctx context.Context, poolID string) (model.TwapObservation, error) {
	return m.read().LatestTwap(ctx, poolID)
}

func (m *Memory) ListTwap(ctx context.Context, poolID string, limit int) ([]model.TwapObservation, error) {
	return m.read().ListTwap(ctx, poolID, limit)
}

func (m *Memory) GetCandle(ctx context.Context, poolID, interval string, start time.Time) (model.PriceCandle, error) {
	return m.read().GetCandle(ctx, poolID, interval, start)
}

func (m *Memory) ListCandles(ctx context.Context, poolID, interval string, limit int) ([]model.PriceCandle, error) {
	return m.read().ListCandles(ctx, poolID, interval, limit)
}

func (m *Memory) ListMevEvents(ctx context.Context, poolID string, limit int) ([]model.MevEvent, error) {
	return m.read().ListMevEvents(ctx, poolID, limit)
}

func (m *Memory) GetUserAnalytics(ctx context.Context, address string) (model.UserAnalytics, error) {
	return m.read().GetUserAnalytics(ctx, address)
}

func (m *Memory) TopTraders(ctx context.Context, limit int) ([]model.UserAnalytics, error) {
	return m.read().TopTraders(ctx, limit)
}

// memTx writes straight into the working copy owned by one Update call.
type memTx struct {
	*state
}

func addressKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func positionKey(poolID, owner string) string {
	return poolID + "|" + addressKey(owner)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func limitTo[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func newestFirst[T any](items []T, limit int) []T {
	out := slices.Clone(items)
	slices.Reverse(out)
	return limitTo(out, limit)
}

func (s *state) GetPool(_ context.Context, id string) (model.Pool, error) {
	pool, ok := s.Pools[id]
	if !ok {
		return model.Pool{}, notFound("pool", id)
	}
	return pool, nil
}

func (s *state) ListPools(_ context.Context, limit int) ([]model.Pool, error) {
	pools := slices.Collect(maps.Values(s.Pools))
	slices.SortFunc(pools, func(a, b model.Pool) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return limitTo(pools, limit), nil
}

func (s *state) GetPoolAssets(_ context.Context, poolID string) ([]model.PoolAsset, error) {
	return slices.Clone(s.Assets[poolID]), nil
}

func (s *state) GetPoolTicks(_ context.Context, poolID string) ([]model.PoolTick, error) {
	return slices.Clone(s.Ticks[poolID]), nil
}

func (s *state) GetPosition(_ context.Context, id string) (model.Position, error) {
	position, ok := s.Positions[id]
	if !ok {
		return model.Position{}, notFound("position", id)
	}
	return position, nil
}

func (s *state) FindPosition(_ context.Context, poolID, owner string) (model.Position, error) {
	key := positionKey(poolID, owner)
	for _, position := range s.Positions {
		if positionKey(position.PoolID, position.OwnerAddress) == key {
			return position, nil
		}
	}
	return model.Position{}, notFound("position", key)
}

func (s *state) ListPositionsByOwner(_ context.Context, owner string) ([]model.Position, error) {
	key := addressKey(owner)
	return s.positionsWhere(func(p model.Position) bool { return addressKey(p.OwnerAddress) == key }), nil
}

func (s *state) ListPositionsByPool(_ context.Context, poolID string) ([]model.Position, error) {
	return s.positionsWhere(func(p model.Position) bool { return p.PoolID == poolID }), nil
}

func (s *state) positionsWhere(match func(model.Position) bool) []model.Position {
	var out []model.Position
	for _, position := range s.Positions {
		if match(position) {
			out = append(out, position)
		}
	}
	slices.SortFunc(out, func(a, b model.Position) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *state) SwapsByTrader(_ context.Context, trader string, limit int) ([]model.Swap, error) {
	key := addressKey(trader)
	var out []model.Swap
	for i := len(s.SwapLog) - 1; i >= 0; i-- {
		swap := s.Swaps[s.SwapLog[i]]
		if addressKey(swap.TraderAddress) != key {
			continue
		}
		out = append(out, swap)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *state) LatestSwaps(_ context.Context, limit int) ([]model.Swap, error) {
	ids := newestFirst(s.SwapLog, limit)
	out := make([]model.Swap, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Swaps[id])
	}
	return out, nil
}

func (s *state) GetSwap(_ context.Context, id string) (model.Swap, error) {
	swap, ok := s.Swaps[id]
	if !ok {
		return model.Swap{}, notFound("swap", id)
	}
	return swap, nil
}

func (s *state) RecentSwaps(_ context.Context, poolID string, limit int) ([]model.Swap, error) {
	ids := newestFirst(s.PoolSwaps[poolID], limit)
	out := make([]model.Swap, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Swaps[id])
	}
	return out, nil
}

func (s *state) GetCircuitBreaker(_ context.Context, poolID string) (model.CircuitBreaker, error) {
	breaker, ok := s.Breakers[poolID]
	if !ok {
		return model.CircuitBreaker{}, notFound("circuit breaker", poolID)
	}
	return breaker, nil
}

func (s *state) LatestTwap(_ context.Context, poolID string) (model.TwapObservation, error) {
	observations := s.Twap[poolID]
	if len(observations) == 0 {
		return model.TwapObservation{}, notFound("twap observation", poolID)
	}
	return observations[len(observations)-1], nil
}

func (s *state) ListTwap(_ context.Context, poolID string, limit int) ([]model.TwapObservation, error) {
	return newestFirst(s.Twap[poolID], limit), nil
}

func (s *state) GetCandle(_ context.Context, poolID, interval string, start time.Time) (model.PriceCandle, error) {
	for _, candle := range s.Candles[poolID] {
		if candle.Interval == interval && candle.PeriodStart.Equal(start) {
			return candle, nil
		}
	}
	return model.PriceCandle{}, notFound("price candle", poolID)
}

func (s *state) ListCandles(_ context.Context, poolID, interval string, limit int) ([]model.PriceCandle, error) {
	var matched []model.PriceCandle
	for _, candle := range s.Candles[poolID] {
		if candle.Interval == interval {
			matched = append(matched, candle)
		}
	}
	slices.SortFunc(matched, func(a, b model.PriceCandle) int {
		return b.PeriodStart.Compare(a.PeriodStart)
	})
	return limitTo(matched, limit), nil
}

func (s *state) ListMevEvents(_ context.Context, poolID string, limit int) ([]model.MevEvent, error) {
	var matched []model.MevEvent
	for _, event := range s.Mev {
		if poolID == "" || event.PoolID == poolID {
			matched = append(matched, event)
		}
	}
	return newestFirst(matched, limit), nil
}

func (s *state) GetUserAnalytics(_ context.Context, address string) (model.UserAnalytics, error) {
	analytics, ok := s.Analytics[addressKey(address)]
	if !ok {
		return model.UserAnalytics{}, notFound("user analytics", address)
	}
	return analytics, nil
}

func (s *state) TopTraders(_ context.Context, limit int) ([]model.UserAnalytics, error) {
	traders := slices.Collect(maps.Values(s.Analytics))
	slices.SortFunc(traders, func(a, b model.UserAnalytics) int {
		if c := fixedpoint.ParseDecimal(b.TotalVolumeUSD).Cmp(fixedpoint.ParseDecimal(a.TotalVolumeUSD)); c != 0 {
			return c
		}
		return strings.Compare(a.UserAddress, b.UserAddress)
	})
	return limitTo(traders, limit), nil
}

func (t *memTx) PutPool(_ context.Context, pool model.Pool) error {
	if pool.ID == "" {
		return fmt.Errorf("pool id is required")
	}
	t.Pools[pool.ID] = pool
	return nil
}

func (t *memTx) PutPoolAsset(_ context.Context, asset model.PoolAsset) error {
	if _, ok := t.Pools[asset.PoolID]; !ok {
		return notFound("pool", asset.PoolID)
	}
	assets := t.Assets[asset.PoolID]
	if i := slices.IndexFunc(assets, func(a model.PoolAsset) bool { return a.ID == asset.ID }); i >= 0 {
		assets[i] = asset
	} else {
		assets = append(assets, asset)
	}
	slices.SortStableFunc(assets, func(a, b model.PoolAsset) int { return a.AssetIndex - b.AssetIndex })
	t.Assets[asset.PoolID] = assets
	return nil
}

func (t *memTx) PutPoolTick(_ context.Context, tick model.PoolTick) error {
	if _, ok := t.Pools[tick.PoolID]; !ok {
		return notFound("pool", tick.PoolID)
	}
	ticks := t.Ticks[tick.PoolID]
	if i := slices.IndexFunc(ticks, func(x model.PoolTick) bool { return x.TickIndex == tick.TickIndex }); i >= 0 {
		ticks[i] = tick
	} else {
		ticks = append(ticks, tick)
	}
	slices.SortFunc(ticks, func(a, b model.PoolTick) int {
		switch {
		case a.TickIndex < b.TickIndex:
			return -1
		case a.TickIndex > b.TickIndex:
			return 1
		}
		return 0
	})
	t.Ticks[tick.PoolID] = ticks
	return nil
}

func (t *memTx) PutPosition(_ context.Context, position model.Position) error {
	if position.ID == "" {
		return fmt.Errorf("position id is required")
	}
	t.Positions[position.ID] = position
	return nil
}

func (t *memTx) PutSwap(_ context.Context, swap model.Swap) error {
	if swap.ID == "" {
		return fmt.Errorf("swap id is required")
	}
	if _, ok := t.Swaps[swap.ID]; !ok {
		t.PoolSwaps[swap.PoolID] = append(t.PoolSwaps[swap.PoolID], swap.ID)
		t.SwapLog = append(t.SwapLog, swap.ID)
	}
	t.Swaps[swap.ID] = swap
	return nil
}

func (t *memTx) PutCircuitBreaker(_ context.Context, breaker model.CircuitBreaker) error {
	t.Breakers[breaker.PoolID] = breaker
	return nil
}

func (t *memTx) AppendTwap(_ context.Context, obs model.TwapObservation) error {
	observations := t.Twap[obs.PoolID]
	if n := len(observations); n > 0 && observations[n-1].ObservationIndex >= obs.ObservationIndex {
		return fmt.Errorf("twap observation %d for %s is not after %d", obs.ObservationIndex, obs.PoolID, observations[n-1].ObservationIndex)
	}
	t.Twap[obs.PoolID] = append(observations, obs)
	return nil
}

func (t *memTx) PutCandle(_ context.Context, candle model.PriceCandle) error {
	candles := t.Candles[candle.PoolID]
	i := slices.IndexFunc(candles, func(c model.PriceCandle) bool {
		return c.Interval == candle.Interval && c.PeriodStart.Equal(candle.PeriodStart)
	})
	if i >= 0 {
		candles[i] = candle
	} else {
		candles = append(candles, candle)
	}
	t.Candles[candle.PoolID] = candles
	return nil
}

func (t *memTx) AppendMevEvent(_ context.Context, event model.MevEvent) error {
	t.Mev = append(t.Mev, event)
	return nil
}

func (t *memTx) PutUserAnalytics(_ context.Context, analytics model.UserAnalytics) error {
	if analytics.UserAddress == "" {
		return fmt.Errorf("user address is required")
	}
	t.Analytics[addressKey(analytics.UserAddress)] = analytics
	return nil
}
