// Package ledger defines the record store the engine reads from and writes
// back to. Writes only happen inside Update, which commits all of them or
// none.
package ledger

import (
	"context"
	"errors"
	"time"

	"liquidityEngine/internal/model"
)

var ErrNotFound = errors.New("record not found")

// Reader is the read side shared by a Store and its transactions. List
// methods that take a limit treat limit <= 0 as "no limit".
type Reader interface {
	GetPool(ctx context.Context, id string) (model.Pool, error)
	ListPools(ctx context.Context, limit int) ([]model.Pool, error)
	GetPoolAssets(ctx context.Context, poolID string) ([]model.PoolAsset, error)
	GetPoolTicks(ctx context.Context, poolID string) ([]model.PoolTick, error)

	GetPosition(ctx context.Context, id string) (model.Position, error)
	FindPosition(ctx context.Context, poolID, owner string) (model.Position, error)
	// ListPositionsByOwner and ListPositionsByPool return positions oldest first.
	ListPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error)
	ListPositionsByPool(ctx context.Context, poolID string) ([]model.Position, error)

	GetSwap(ctx context.Context, id string) (model.Swap, error)
	// RecentSwaps returns a pool's swaps, newest first.
	RecentSwaps(ctx context.Context, poolID string, limit int) ([]model.Swap, error)
	// SwapsByTrader returns one trader's swaps across pools, newest first.
	SwapsByTrader(ctx context.Context, trader string, limit int) ([]model.Swap, error)
	// LatestSwaps returns swaps across all pools, newest first.
	LatestSwaps(ctx context.Context, limit int) ([]model.Swap, error)

	GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, error)

	LatestTwap(ctx context.Context, poolID string) (model.TwapObservation, error)
	// ListTwap returns observations newest first.
	ListTwap(ctx context.Context, poolID string, limit int) ([]model.TwapObservation, error)

	GetCandle(ctx context.Context, poolID, interval string, start time.Time) (model.PriceCandle, error)
	// ListCandles returns candles newest first.
	ListCandles(ctx context.Context, poolID, interval string, limit int) ([]model.PriceCandle, error)

	// ListMevEvents returns events newest first; an empty poolID lists all pools.
	ListMevEvents(ctx context.Context, poolID string, limit int) ([]model.MevEvent, error)

	GetUserAnalytics(ctx context.Context, address string) (model.UserAnalytics, error)
	// TopTraders orders analytics by total volume, largest first.
	TopTraders(ctx context.Context, limit int) ([]model.UserAnalytics, error)
}

// Tx is a unit of work. Reads observe the transaction's own writes.
type Tx interface {
	Reader

	PutPool(ctx context.Context, pool model.Pool) error
	PutPoolAsset(ctx context.Context, asset model.PoolAsset) error
	PutPoolTick(ctx context.Context, tick model.PoolTick) error
	PutPosition(ctx context.Context, position model.Position) error
	PutSwap(ctx context.Context, swap model.Swap) error
	PutCircuitBreaker(ctx context.Context, breaker model.CircuitBreaker) error
	AppendTwap(ctx context.Context, obs model.TwapObservation) error
	PutCandle(ctx context.Context, candle model.PriceCandle) error
	AppendMevEvent(ctx context.Context, event model.MevEvent) error
	PutUserAnalytics(ctx context.Context, analytics model.UserAnalytics) error
}

// Store is the ledger collaborator.
type Store interface {
	Reader
	// Update runs fn in a transaction. A non-nil error from fn discards
	// every write it made.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// BreakerStore exposes circuit breaker records through the (record, found)
// shape used by the breaker package.
type BreakerStore struct {
	Store Store
}

func (b BreakerStore) GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, bool, error) {
	record, err := b.Store.GetCircuitBreaker(ctx, poolID)
	if errors.Is(err, ErrNotFound) {
		return model.CircuitBreaker{}, false, nil
	}
	if err != nil {
		return model.CircuitBreaker{}, false, err
	}
	return record, true, nil
}

func (b BreakerStore) PutCircuitBreaker(ctx context.Context, breaker model.CircuitBreaker) error {
	return b.Store.Update(ctx, func(tx Tx) error {
		return tx.PutCircuitBreaker(ctx, breaker)
	})
}
