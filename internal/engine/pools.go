package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityEngine/internal/curve"
	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/model"
)

// AssetSpec describes one token leg of a new pool.
type AssetSpec struct {
	TokenAddress string
	TokenSymbol  string
	Decimals     uint8
	// Weight in bps; only meaningful for weighted and multi-asset pools.
	Weight uint32
}

type CreatePoolRequest struct {
	Name                 string
	PoolType             model.PoolType
	FeeTierBps           uint32
	Assets               []AssetSpec
	MEVProtectionEnabled bool
	AIRouteOptimization  bool
	// CooldownMinutes overrides the default breaker cooldown when positive.
	CooldownMinutes int
}

// CreatePool registers a pool with empty reserves and a normal breaker.
func (e *Engine) CreatePool(ctx context.Context, req CreatePoolRequest) (model.PoolWithAssets, error) {
	if !curve.Supported(req.PoolType) {
		return model.PoolWithAssets{}, fmt.Errorf("%w: %q", ErrUnsupportedPoolType, req.PoolType)
	}
	if req.FeeTierBps < 1 || req.FeeTierBps > fixedpoint.FeePrecision {
		return model.PoolWithAssets{}, fmt.Errorf("%w: fee tier %d bps outside 1-10000", ErrInvalidPoolConfig, req.FeeTierBps)
	}
	multi := req.PoolType == model.PoolTypeMultiAsset
	switch {
	case len(req.Assets) < 2:
		return model.PoolWithAssets{}, fmt.Errorf("%w: at least two assets required", ErrInvalidPoolConfig)
	case !multi && len(req.Assets) != 2:
		return model.PoolWithAssets{}, fmt.Errorf("%w: %s pools hold exactly two assets", ErrInvalidPoolConfig, req.PoolType)
	}

	weights, err := poolWeights(req.PoolType, req.Assets)
	if err != nil {
		return model.PoolWithAssets{}, err
	}

	now := e.now().UTC()
	pool := model.Pool{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(req.Name),
		PoolType:             req.PoolType,
		FeeTierBps:           req.FeeTierBps,
		Status:               model.PoolStatusActive,
		LPTokenSupply:        "0",
		TVLUSD:               decimal.Zero.StringFixed(fixedpoint.USDScale),
		Volume24h:            "0",
		Fees24h:              "0",
		MEVProtectionEnabled: req.MEVProtectionEnabled,
		AIRouteOptimization:  req.AIRouteOptimization,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	assets := make([]model.PoolAsset, 0, len(req.Assets))
	symbols := make([]string, 0, len(req.Assets))
	for i, in := range req.Assets {
		address, err := normalizeAddress("token", in.TokenAddress)
		if err != nil {
			return model.PoolWithAssets{}, err
		}
		for _, prior := range assets {
			if model.SameAddress(prior.TokenAddress, address) {
				return model.PoolWithAssets{}, fmt.Errorf("%w: duplicate token %s", ErrInvalidTokenPair, address)
			}
		}
		assets = append(assets, model.PoolAsset{
			ID:           uuid.NewString(),
			PoolID:       pool.ID,
			AssetIndex:   i,
			TokenAddress: address,
			TokenSymbol:  in.TokenSymbol,
			Decimals:     in.Decimals,
			Reserve:      "0",
			Weight:       weights[i],
		})
		symbols = append(symbols, in.TokenSymbol)
	}
	if pool.Name == "" {
		pool.Name = strings.Join(symbols, "/")
	}

	cb := e.breaker.Default(pool.ID)
	if req.CooldownMinutes > 0 {
		cb.CooldownDurationMinutes = req.CooldownMinutes
	}

	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		if err := tx.PutPool(ctx, pool); err != nil {
			return fmt.Errorf("put pool: %w", err)
		}
		for _, asset := range assets {
			if err := tx.PutPoolAsset(ctx, asset); err != nil {
				return fmt.Errorf("put pool asset %d: %w", asset.AssetIndex, err)
			}
		}
		if err := tx.PutCircuitBreaker(ctx, cb); err != nil {
			return fmt.Errorf("put circuit breaker: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.PoolWithAssets{}, fmt.Errorf("create pool: %w", err)
	}
	e.logger.Info("pool created",
		zap.String("pool", pool.ID),
		zap.String("type", string(pool.PoolType)),
		zap.Uint32("fee_tier_bps", pool.FeeTierBps),
	)
	return model.PoolWithAssets{Pool: pool, Assets: assets}, nil
}

// poolWeights validates supplied weights for weighted pools and splits
// 10000 bps evenly when none are given. Other pool types carry no weight.
func poolWeights(poolType model.PoolType, specs []AssetSpec) ([]uint32, error) {
	weights := make([]uint32, len(specs))
	if poolType != model.PoolTypeWeighted && poolType != model.PoolTypeMultiAsset {
		return weights, nil
	}
	var total uint32
	given := 0
	for i, asset := range specs {
		weights[i] = asset.Weight
		total += asset.Weight
		if asset.Weight > 0 {
			given++
		}
	}
	if given == 0 {
		share := uint32(fixedpoint.FeePrecision / len(specs))
		for i := range weights {
			weights[i] = share
		}
		weights[0] += uint32(fixedpoint.FeePrecision) - share*uint32(len(specs))
		return weights, nil
	}
	if given != len(specs) || total != fixedpoint.FeePrecision {
		return nil, fmt.Errorf("%w: weights must all be set and sum to 10000, got %d", ErrInvalidPoolConfig, total)
	}
	return weights, nil
}

// AddPoolTick registers or replaces a liquidity range of a concentrated pool.
func (e *Engine) AddPoolTick(ctx context.Context, poolID string, tickIndex int32, liquidityGross string) (model.PoolTick, error) {
	if tickIndex < model.MinTick || tickIndex > model.MaxTick {
		return model.PoolTick{}, fmt.Errorf("%w: tick %d out of range", ErrInvalidAmount, tickIndex)
	}
	amount, err := fixedpoint.ParseAmount(liquidityGross)
	if err != nil {
		return model.PoolTick{}, err
	}
	// liquidity is a 1e18-scaled share of the pool reserves
	if amount.Gt(fixedpoint.Precision) {
		return model.PoolTick{}, fmt.Errorf("%w: tick liquidity %s exceeds %s", ErrInvalidAmount, amount.Dec(), fixedpoint.Precision.Dec())
	}

	release, err := e.lockPool(ctx, poolID)
	if err != nil {
		return model.PoolTick{}, err
	}
	defer release()

	pool, err := e.GetPool(ctx, poolID)
	if err != nil {
		return model.PoolTick{}, err
	}
	if pool.PoolType != model.PoolTypeConcentrated {
		return model.PoolTick{}, fmt.Errorf("%w: ticks need a concentrated pool, %s is %s", ErrInvalidPoolConfig, poolID, pool.PoolType)
	}

	tick := model.PoolTick{PoolID: poolID, TickIndex: tickIndex, LiquidityGross: amount.Dec()}
	if err := e.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.PutPoolTick(ctx, tick)
	}); err != nil {
		return model.PoolTick{}, fmt.Errorf("add pool tick: %w", err)
	}
	return tick, nil
}

// SetPoolStatus moves a pool between active, paused and halted.
func (e *Engine) SetPoolStatus(ctx context.Context, poolID string, status model.PoolStatus) (model.Pool, error) {
	switch status {
	case model.PoolStatusActive, model.PoolStatusPaused, model.PoolStatusHalted:
	default:
		return model.Pool{}, fmt.Errorf("%w: status %q", ErrInvalidPoolConfig, status)
	}
	release, err := e.lockPool(ctx, poolID)
	if err != nil {
		return model.Pool{}, err
	}
	defer release()

	var updated model.Pool
	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		pool, err := tx.GetPool(ctx, poolID)
		if err != nil {
			return notFound(err, ErrPoolNotFound, poolID)
		}
		pool.Status = status
		pool.UpdatedAt = e.now().UTC()
		updated = pool
		return tx.PutPool(ctx, pool)
	})
	if err != nil {
		return model.Pool{}, fmt.Errorf("set pool status: %w", err)
	}
	e.logger.Info("pool status changed", zap.String("pool", poolID), zap.String("status", string(status)))
	return updated, nil
}

func (e *Engine) GetPool(ctx context.Context, poolID string) (model.Pool, error) {
	pool, err := e.store.GetPool(ctx, poolID)
	if err != nil {
		return model.Pool{}, notFound(err, ErrPoolNotFound, poolID)
	}
	return pool, nil
}

func (e *Engine) GetPoolWithAssets(ctx context.Context, poolID string) (model.PoolWithAssets, error) {
	return loadPool(ctx, e.store, poolID)
}

func loadPool(ctx context.Context, r ledger.Reader, poolID string) (model.PoolWithAssets, error) {
	pool, err := r.GetPool(ctx, poolID)
	if err != nil {
		return model.PoolWithAssets{}, notFound(err, ErrPoolNotFound, poolID)
	}
	assets, err := r.GetPoolAssets(ctx, poolID)
	if err != nil {
		return model.PoolWithAssets{}, fmt.Errorf("load assets %s: %w", poolID, err)
	}
	return model.PoolWithAssets{Pool: pool, Assets: assets}, nil
}

// GetAllPools lists pools in creation order; limit <= 0 lists every pool.
func (e *Engine) GetAllPools(ctx context.Context, limit int) ([]model.Pool, error) {
	return e.store.ListPools(ctx, limit)
}

func (e *Engine) GetPoolsByType(ctx context.Context, poolType model.PoolType) ([]model.Pool, error) {
	pools, err := e.store.ListPools(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []model.Pool
	for _, pool := range pools {
		if pool.PoolType == poolType {
			out = append(out, pool)
		}
	}
	return out, nil
}

func (e *Engine) GetPoolTicks(ctx context.Context, poolID string) ([]model.PoolTick, error) {
	if _, err := e.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return e.store.GetPoolTicks(ctx, poolID)
}

// GetDexStats sums pool aggregates across the ledger.
func (e *Engine) GetDexStats(ctx context.Context) (model.DexStats, error) {
	pools, err := e.store.ListPools(ctx, 0)
	if err != nil {
		return model.DexStats{}, err
	}
	tvl := decimal.Zero
	volume := fixedpoint.Zero()
	fees := fixedpoint.Zero()
	stats := model.DexStats{TotalPools: len(pools)}
	for _, pool := range pools {
		tvl = tvl.Add(fixedpoint.ParseDecimal(pool.TVLUSD))
		if volume, err = addAmount(volume, pool.Volume24h); err != nil {
			return model.DexStats{}, fmt.Errorf("pool %s volume: %w", pool.ID, err)
		}
		if fees, err = addAmount(fees, pool.Fees24h); err != nil {
			return model.DexStats{}, fmt.Errorf("pool %s fees: %w", pool.ID, err)
		}
		stats.TotalSwaps24h += pool.SwapCount24h
		stats.TotalLiquidityProviders += pool.LPCount
	}
	stats.TotalTVLUSD = tvl.StringFixed(fixedpoint.USDScale)
	stats.TotalVolume24h = volume.Dec()
	stats.TotalFees24h = fees.Dec()
	return stats, nil
}

func addAmount(acc *uint256.Int, value string) (*uint256.Int, error) {
	parsed, err := fixedpoint.ParseAmount(value)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(acc, parsed)
}

// poolTVL values every reserve at one token per dollar.
func poolTVL(assets []model.PoolAsset) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, asset := range assets {
		reserve, err := fixedpoint.ParseAmount(asset.Reserve)
		if err != nil {
			return decimal.Zero, fmt.Errorf("reserve of %s: %w", asset.TokenAddress, err)
		}
		total = total.Add(fixedpoint.Value(reserve, asset.Decimals))
	}
	return total, nil
}
