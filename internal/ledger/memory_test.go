package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/model"
)

var errBoom = errors.New("boom")

func seedPool(t *testing.T, store Store, id string) {
	t.Helper()
	ctx := context.Background()
	err := store.Update(ctx, func(tx Tx) error {
		if err := tx.PutPool(ctx, model.Pool{ID: id, Name: id, PoolType: model.PoolTypeConstantProduct, Status: model.PoolStatusActive, LPTokenSupply: "0"}); err != nil {
			return err
		}
		if err := tx.PutPoolAsset(ctx, model.PoolAsset{ID: id + "-1", PoolID: id, AssetIndex: 1, TokenAddress: "0xB", Reserve: "0"}); err != nil {
			return err
		}
		return tx.PutPoolAsset(ctx, model.PoolAsset{ID: id + "-0", PoolID: id, AssetIndex: 0, TokenAddress: "0xA", Reserve: "0"})
	})
	require.NoError(t, err)
}

func TestMemoryUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	seedPool(t, store, "p1")

	err := store.Update(ctx, func(tx Tx) error {
		assets, err := tx.GetPoolAssets(ctx, "p1")
		if err != nil {
			return err
		}
		assets[0].Reserve = "999"
		if err := tx.PutPoolAsset(ctx, assets[0]); err != nil {
			return err
		}
		seen, err := tx.GetPoolAssets(ctx, "p1")
		if err != nil {
			return err
		}
		if seen[0].Reserve != "999" {
			return errors.New("transaction does not see its own write")
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	assets, err := store.GetPoolAssets(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "0", assets[0].Reserve)
}

func TestMemoryAssetsOrderedByIndex(t *testing.T) {
	store := NewMemory()
	seedPool(t, store, "p1")

	assets, err := store.GetPoolAssets(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, "0xA", assets[0].TokenAddress)
	require.Equal(t, "0xB", assets[1].TokenAddress)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.GetPool(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindPosition(ctx, "p1", "0xabc")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.LatestTwap(ctx, "p1")
	require.ErrorIs(t, err, ErrNotFound)

	found, ok, err := BreakerStore{Store: store}.GetCircuitBreaker(ctx, "p1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, found.PoolID)
}

func TestMemoryRecentSwapsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	seedPool(t, store, "p1")

	base := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		for i, id := range []string{"s1", "s2", "s3"} {
			swap := model.Swap{ID: id, PoolID: "p1", Status: model.SwapStatusPending, CreatedAt: base.Add(time.Duration(i) * time.Second)}
			if err := tx.PutSwap(ctx, swap); err != nil {
				return err
			}
		}
		// updating an existing swap keeps its position in the pool history
		return tx.PutSwap(ctx, model.Swap{ID: "s1", PoolID: "p1", Status: model.SwapStatusCompleted, CreatedAt: base})
	}))

	recent, err := store.RecentSwaps(ctx, "p1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "s3", recent[0].ID)
	require.Equal(t, "s2", recent[1].ID)

	all, err := store.RecentSwaps(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, model.SwapStatusCompleted, all[2].Status)
}

func TestMemorySwapsAcrossPools(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := OpenFile(path)
	require.NoError(t, err)
	seedPool(t, store, "p1")
	seedPool(t, store, "p2")

	base := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		swaps := []model.Swap{
			{ID: "s1", PoolID: "p1", TraderAddress: "0xAbC", CreatedAt: base},
			{ID: "s2", PoolID: "p2", TraderAddress: "0xdef", CreatedAt: base},
			{ID: "s3", PoolID: "p2", TraderAddress: "0xabc", CreatedAt: base},
		}
		for _, swap := range swaps {
			if err := tx.PutSwap(ctx, swap); err != nil {
				return err
			}
		}
		return nil
	}))

	latest, err := store.LatestSwaps(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, "s3", latest[0].ID)
	require.Equal(t, "s2", latest[1].ID)

	byTrader, err := store.SwapsByTrader(ctx, "0xABC", 0)
	require.NoError(t, err)
	require.Len(t, byTrader, 2)
	require.Equal(t, "s3", byTrader[0].ID)
	require.Equal(t, "s1", byTrader[1].ID)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	again, err := reopened.LatestSwaps(ctx, 0)
	require.NoError(t, err)
	require.Len(t, again, 3)
	require.Equal(t, "s3", again[0].ID)
}

func TestMemoryPositionsByOwnerAndPool(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	base := time.Unix(1_700_000_000, 0)
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		positions := []model.Position{
			{ID: "a", PoolID: "p1", OwnerAddress: "0xAbC", CreatedAt: base.Add(time.Second)},
			{ID: "b", PoolID: "p2", OwnerAddress: "0xabc", CreatedAt: base},
			{ID: "c", PoolID: "p1", OwnerAddress: "0xdef", CreatedAt: base},
		}
		for _, position := range positions {
			if err := tx.PutPosition(ctx, position); err != nil {
				return err
			}
		}
		return nil
	}))

	owned, err := store.ListPositionsByOwner(ctx, "0xABC")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	require.Equal(t, "b", owned[0].ID)
	require.Equal(t, "a", owned[1].ID)

	inPool, err := store.ListPositionsByPool(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, inPool, 2)
	require.Equal(t, "c", inPool[0].ID)

	none, err := store.ListPositionsByPool(ctx, "p3")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMemoryTwapAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		return tx.AppendTwap(ctx, model.TwapObservation{PoolID: "p1", ObservationIndex: 1})
	}))
	err := store.Update(ctx, func(tx Tx) error {
		return tx.AppendTwap(ctx, model.TwapObservation{PoolID: "p1", ObservationIndex: 1})
	})
	require.Error(t, err)

	latest, err := store.LatestTwap(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 1, latest.ObservationIndex)
}

func TestMemoryCandleUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		if err := tx.PutCandle(ctx, model.PriceCandle{PoolID: "p1", Interval: "1h", PeriodStart: start, Close: "1", TradeCount: 1}); err != nil {
			return err
		}
		if err := tx.PutCandle(ctx, model.PriceCandle{PoolID: "p1", Interval: "1h", PeriodStart: start, Close: "2", TradeCount: 2}); err != nil {
			return err
		}
		return tx.PutCandle(ctx, model.PriceCandle{PoolID: "p1", Interval: "1h", PeriodStart: start.Add(time.Hour), Close: "3", TradeCount: 1})
	}))

	candles, err := store.ListCandles(ctx, "p1", "1h", 0)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	require.Equal(t, "3", candles[0].Close)
	require.Equal(t, "2", candles[1].Close)

	got, err := store.GetCandle(ctx, "p1", "1h", start)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.TradeCount)
}

func TestMemoryTopTraders(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		for addr, volume := range map[string]string{"0xa": "10.50", "0xb": "200.00", "0xc": "99.99"} {
			if err := tx.PutUserAnalytics(ctx, model.UserAnalytics{UserAddress: addr, TotalVolumeUSD: volume}); err != nil {
				return err
			}
		}
		return nil
	}))

	top, err := store.TopTraders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "0xb", top[0].UserAddress)
	require.Equal(t, "0xc", top[1].UserAddress)

	_, err = store.GetUserAnalytics(ctx, "0XA")
	require.NoError(t, err)
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "ledger.json")

	store, err := OpenFile(path)
	require.NoError(t, err)
	seedPool(t, store, "p1")
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		return tx.PutPosition(ctx, model.Position{ID: "pos1", PoolID: "p1", OwnerAddress: "0xAbC", LPTokenAmount: "9000", Status: model.PositionStatusActive})
	}))
	require.NoError(t, store.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	pool, err := reopened.GetPool(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, model.PoolTypeConstantProduct, pool.PoolType)

	position, err := reopened.FindPosition(ctx, "p1", "0xabc")
	require.NoError(t, err)
	require.Equal(t, "9000", position.LPTokenAmount)

	// failed updates never reach the file
	require.ErrorIs(t, reopened.Update(ctx, func(tx Tx) error {
		if err := tx.PutPool(ctx, model.Pool{ID: "p2"}); err != nil {
			return err
		}
		return errBoom
	}), errBoom)
	again, err := OpenFile(path)
	require.NoError(t, err)
	_, err = again.GetPool(ctx, "p2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenFileRejectsDirectory(t *testing.T) {
	_, err := OpenFile(t.TempDir())
	require.Error(t, err)
}
