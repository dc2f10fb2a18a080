package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/mev"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/oracle"
	"liquidityEngine/internal/storage"
)

type SwapRequest struct {
	PoolID           string
	Trader           string
	TokenIn          string
	TokenOut         string
	AmountIn         string
	MinimumAmountOut string
	// Deadline is a unix timestamp in seconds.
	Deadline int64
}

// ExecuteSwap prices and settles a swap. Reserve, aggregate, oracle,
// analytics and candle writes commit together; when they fail the swap
// record is marked failed and returned with the error.
func (e *Engine) ExecuteSwap(ctx context.Context, req SwapRequest) (model.Swap, error) {
	now := e.now().UTC()
	if now.Unix() > req.Deadline {
		return model.Swap{}, fmt.Errorf("%w: deadline %d, now %d", ErrDeadlineExpired, req.Deadline, now.Unix())
	}
	trader, err := normalizeAddress("trader", req.Trader)
	if err != nil {
		return model.Swap{}, err
	}
	amountIn, err := fixedpoint.ParseAmount(req.AmountIn)
	if err != nil {
		return model.Swap{}, err
	}
	minOut, err := fixedpoint.ParseAmount(req.MinimumAmountOut)
	if err != nil {
		return model.Swap{}, err
	}

	release, err := e.lockPool(ctx, req.PoolID)
	if err != nil {
		return model.Swap{}, err
	}
	defer release()

	if err := e.breaker.Check(ctx, req.PoolID); err != nil {
		return model.Swap{}, err
	}

	pool, err := loadPool(ctx, e.store, req.PoolID)
	if err != nil {
		return model.Swap{}, err
	}
	if pool.Pool.Status != model.PoolStatusActive {
		return model.Swap{}, fmt.Errorf("%w: pool %s is %s", ErrPoolInactive, pool.Pool.ID, pool.Pool.Status)
	}

	priced, err := e.priceSwap(ctx, e.store, pool, req.TokenIn, req.TokenOut, amountIn)
	if err != nil {
		return model.Swap{}, err
	}
	if priced.result.AmountOut.Lt(minOut) {
		return model.Swap{}, fmt.Errorf("%w: out %s < minimum %s", ErrSlippageExceeded, priced.result.AmountOut.Dec(), minOut.Dec())
	}

	e.inspectMEV(ctx, priced, trader, now)

	id := uuid.NewString()
	swap := model.Swap{
		ID:               id,
		PoolID:           pool.Pool.ID,
		TxHash:           crypto.Keccak256Hash([]byte(id)).Hex(),
		TraderAddress:    trader,
		TokenInAddress:   priced.in.TokenAddress,
		TokenInSymbol:    priced.in.TokenSymbol,
		TokenOutAddress:  priced.out.TokenAddress,
		TokenOutSymbol:   priced.out.TokenSymbol,
		AmountIn:         amountIn.Dec(),
		AmountOut:        priced.result.AmountOut.Dec(),
		MinimumAmountOut: minOut.Dec(),
		FeeAmount:        priced.result.Fee.Dec(),
		PriceImpactBps:   priced.impact.Bps(),
		ExecutionPrice:   priced.impact.ExecutionPrice.FloatString(pricePlaces),
		RoutePath:        []string{priced.in.TokenAddress, priced.out.TokenAddress},
		MEVProtected:     pool.Pool.MEVProtectionEnabled,
		Status:           model.SwapStatusPending,
		CreatedAt:        now,
	}
	if err := e.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.PutSwap(ctx, swap)
	}); err != nil {
		return model.Swap{}, fmt.Errorf("record pending swap: %w", err)
	}

	settled := swap
	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		return e.settleSwap(ctx, tx, &settled, priced, now)
	})
	if err != nil {
		return e.failSwap(ctx, swap, err)
	}

	e.record(storage.Entry{Kind: storage.EntrySwapCompleted, PoolID: settled.PoolID, At: now, Swap: &settled})
	e.logger.Info("swap completed",
		zap.String("pool", settled.PoolID),
		zap.String("swap", settled.ID),
		zap.String("trader", trader),
		zap.String("amount_in", settled.AmountIn),
		zap.String("amount_out", settled.AmountOut),
		zap.Uint32("price_impact_bps", settled.PriceImpactBps),
	)
	return settled, nil
}

// settleSwap applies a priced swap inside one ledger transaction.
func (e *Engine) settleSwap(ctx context.Context, tx ledger.Tx, swap *model.Swap, priced pricedSwap, now time.Time) error {
	pool, err := loadPool(ctx, tx, swap.PoolID)
	if err != nil {
		return err
	}
	assets := pool.Assets
	in, out := -1, -1
	for i, asset := range assets {
		switch asset.AssetIndex {
		case priced.in.AssetIndex:
			in = i
		case priced.out.AssetIndex:
			out = i
		}
	}
	if in < 0 || out < 0 {
		return fmt.Errorf("%w: pool %s assets changed", ErrInvalidTokenPair, pool.Pool.ID)
	}

	reserveIn, err := fixedpoint.ParseAmount(assets[in].Reserve)
	if err != nil {
		return err
	}
	reserveOut, err := fixedpoint.ParseAmount(assets[out].Reserve)
	if err != nil {
		return err
	}
	if reserveIn, err = fixedpoint.Add(reserveIn, priced.amountIn); err != nil {
		return fmt.Errorf("credit reserve: %w", err)
	}
	if reserveOut, err = fixedpoint.Sub(reserveOut, priced.result.AmountOut); err != nil {
		return fmt.Errorf("debit reserve: %w", err)
	}
	assets[in].Reserve = reserveIn.Dec()
	assets[out].Reserve = reserveOut.Dec()
	for _, i := range []int{in, out} {
		if err := tx.PutPoolAsset(ctx, assets[i]); err != nil {
			return fmt.Errorf("put pool asset %d: %w", assets[i].AssetIndex, err)
		}
	}

	p := pool.Pool
	if p.Volume24h, err = addString(p.Volume24h, priced.amountIn.Dec()); err != nil {
		return fmt.Errorf("pool volume: %w", err)
	}
	if p.Fees24h, err = addString(p.Fees24h, priced.result.Fee.Dec()); err != nil {
		return fmt.Errorf("pool fees: %w", err)
	}
	tvl, err := poolTVL(assets)
	if err != nil {
		return err
	}
	p.TVLUSD = tvl.StringFixed(fixedpoint.USDScale)
	p.SwapCount24h++
	p.LastSwapAt = &now
	p.UpdatedAt = now
	if err := tx.PutPool(ctx, p); err != nil {
		return fmt.Errorf("put pool: %w", err)
	}

	swap.Status = model.SwapStatusCompleted
	swap.CompletedAt = &now
	if err := tx.PutSwap(ctx, *swap); err != nil {
		return fmt.Errorf("complete swap: %w", err)
	}

	if err := updateOracle(ctx, tx, p.ID, priced.pool.Assets, now); err != nil {
		return err
	}

	volumeUSD := fixedpoint.Value(priced.amountIn, priced.in.Decimals)
	feeUSD := fixedpoint.Value(priced.result.Fee, priced.in.Decimals)
	if err := recordTrade(ctx, tx, swap.TraderAddress, volumeUSD, feeUSD, now); err != nil {
		return fmt.Errorf("update analytics: %w", err)
	}

	return updateCandle(ctx, tx, p.ID, priced.pool.Assets, priced, now)
}

// updateOracle appends the next cumulative price observation. assets hold
// the reserves read before the swap, the price that held since the
// previous observation.
func updateOracle(ctx context.Context, tx ledger.Tx, poolID string, assets []model.PoolAsset, now time.Time) error {
	if len(assets) < 2 {
		return nil
	}
	r0, r1, err := leadingReserves(assets)
	if err != nil {
		return err
	}
	var prev *model.TwapObservation
	last, err := tx.LatestTwap(ctx, poolID)
	switch {
	case err == nil:
		prev = &last
	case !errors.Is(err, ledger.ErrNotFound):
		return fmt.Errorf("load twap %s: %w", poolID, err)
	}
	obs, ok, err := oracle.NextObservation(poolID, prev, r0, r1, now)
	if err != nil {
		return fmt.Errorf("twap observation: %w", err)
	}
	if !ok {
		return nil
	}
	if err := tx.AppendTwap(ctx, obs); err != nil {
		return fmt.Errorf("append twap: %w", err)
	}
	return nil
}

// updateCandle folds the pre-swap spot price and the swap volume into the
// current hourly candle.
func updateCandle(ctx context.Context, tx ledger.Tx, poolID string, assets []model.PoolAsset, priced pricedSwap, now time.Time) error {
	if len(assets) < 2 {
		return nil
	}
	r0, r1, err := leadingReserves(assets)
	if err != nil {
		return err
	}
	price, ok := oracle.SpotPrice(r0, r1)
	if !ok {
		return nil
	}
	var existing *model.PriceCandle
	current, err := tx.GetCandle(ctx, poolID, oracle.IntervalHour, oracle.HourStart(now))
	switch {
	case err == nil:
		existing = &current
	case !errors.Is(err, ledger.ErrNotFound):
		return fmt.Errorf("load candle %s: %w", poolID, err)
	}
	candle, err := oracle.ApplyTrade(existing, poolID, price, priced.amountIn, now)
	if err != nil {
		return fmt.Errorf("apply candle trade: %w", err)
	}
	if err := tx.PutCandle(ctx, candle); err != nil {
		return fmt.Errorf("put candle: %w", err)
	}
	return nil
}

func (e *Engine) inspectMEV(ctx context.Context, priced pricedSwap, trader string, now time.Time) {
	event, err := e.detector.Inspect(ctx, mev.Attempt{
		PoolID:      priced.pool.Pool.ID,
		Trader:      trader,
		AmountIn:    priced.amountIn,
		Decimals:    priced.in.Decimals,
		PriceImpact: impactDecimal(priced.impact),
		Now:         now,
	})
	if err != nil {
		e.logger.Warn("mev inspection failed", zap.String("pool", priced.pool.Pool.ID), zap.Error(err))
		return
	}
	if event == nil {
		return
	}
	if err := e.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.AppendMevEvent(ctx, *event)
	}); err != nil {
		e.logger.Warn("record mev event", zap.String("pool", event.PoolID), zap.Error(err))
		return
	}
	e.record(storage.Entry{Kind: storage.EntryMevDetected, PoolID: event.PoolID, At: now, MevEvent: event})
}

// failSwap marks the pending record failed. The settlement error is what
// the caller sees.
func (e *Engine) failSwap(ctx context.Context, swap model.Swap, cause error) (model.Swap, error) {
	swap.Status = model.SwapStatusFailed
	swap.FailureReason = cause.Error()
	if err := e.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.PutSwap(ctx, swap)
	}); err != nil {
		e.logger.Error("mark swap failed", zap.String("swap", swap.ID), zap.Error(err))
	}
	e.record(storage.Entry{Kind: storage.EntrySwapFailed, PoolID: swap.PoolID, At: swap.CreatedAt, Swap: &swap})
	e.logger.Warn("swap failed",
		zap.String("pool", swap.PoolID),
		zap.String("swap", swap.ID),
		zap.String("trader", swap.TraderAddress),
		zap.String("reason", swap.FailureReason),
	)
	return swap, fmt.Errorf("execute swap %s: %w", swap.ID, cause)
}

func leadingReserves(assets []model.PoolAsset) (r0, r1 *uint256.Int, err error) {
	if r0, err = fixedpoint.ParseAmount(assets[0].Reserve); err != nil {
		return nil, nil, fmt.Errorf("reserve 0: %w", err)
	}
	if r1, err = fixedpoint.ParseAmount(assets[1].Reserve); err != nil {
		return nil, nil, fmt.Errorf("reserve 1: %w", err)
	}
	return r0, r1, nil
}

func addString(a, b string) (string, error) {
	x, err := fixedpoint.ParseAmount(a)
	if err != nil {
		return "", err
	}
	sum, err := addAmount(x, b)
	if err != nil {
		return "", err
	}
	return sum.Dec(), nil
}
