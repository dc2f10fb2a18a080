package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/model"
)

const feePaidPlaces = 4

type traderTier struct {
	name        string
	minVolume   decimal.Decimal
	discountBps uint32
}

// Ordered from the highest threshold down.
var traderTiers = []traderTier{
	{name: "platinum", minVolume: decimal.NewFromInt(1_000_000), discountBps: 20},
	{name: "gold", minVolume: decimal.NewFromInt(100_000), discountBps: 10},
	{name: "silver", minVolume: decimal.NewFromInt(10_000), discountBps: 5},
	{name: "bronze", minVolume: decimal.Zero, discountBps: 0},
}

// TraderTier maps lifetime USD volume onto a tier name and fee discount.
func TraderTier(volumeUSD decimal.Decimal) (string, uint32) {
	for _, tier := range traderTiers {
		if volumeUSD.GreaterThanOrEqual(tier.minVolume) {
			return tier.name, tier.discountBps
		}
	}
	last := traderTiers[len(traderTiers)-1]
	return last.name, last.discountBps
}

func loadAnalytics(ctx context.Context, tx ledger.Tx, address string) (model.UserAnalytics, error) {
	analytics, err := tx.GetUserAnalytics(ctx, address)
	if errors.Is(err, ledger.ErrNotFound) {
		return model.UserAnalytics{UserAddress: address}, nil
	}
	if err != nil {
		return model.UserAnalytics{}, fmt.Errorf("load analytics %s: %w", address, err)
	}
	return analytics, nil
}

// recordTrade folds one completed swap into the trader's analytics.
func recordTrade(ctx context.Context, tx ledger.Tx, address string, volumeUSD, feeUSD decimal.Decimal, now time.Time) error {
	analytics, err := loadAnalytics(ctx, tx, address)
	if err != nil {
		return err
	}
	volume := fixedpoint.ParseDecimal(analytics.TotalVolumeUSD).Add(volumeUSD)
	fees := fixedpoint.ParseDecimal(analytics.TotalFeePaidUSD).Add(feeUSD)

	analytics.TotalSwaps++
	analytics.TotalVolumeUSD = volume.StringFixed(fixedpoint.USDScale)
	analytics.TotalFeePaidUSD = fees.StringFixed(feePaidPlaces)
	analytics.TotalLiquidityProvidedUSD = fixedpoint.ParseDecimal(analytics.TotalLiquidityProvidedUSD).StringFixed(fixedpoint.USDScale)
	analytics.TraderTier, analytics.FeeDiscountBps = TraderTier(volume)
	if analytics.FirstTradeAt == nil {
		analytics.FirstTradeAt = &now
	}
	analytics.LastTradeAt = &now
	return tx.PutUserAnalytics(ctx, analytics)
}

// recordLiquidity adds a deposit to the provider's liquidity total. It does
// not count as a swap.
func recordLiquidity(ctx context.Context, tx ledger.Tx, address string, valueUSD decimal.Decimal) error {
	analytics, err := loadAnalytics(ctx, tx, address)
	if err != nil {
		return err
	}
	provided := fixedpoint.ParseDecimal(analytics.TotalLiquidityProvidedUSD).Add(valueUSD)
	analytics.TotalLiquidityProvidedUSD = provided.StringFixed(fixedpoint.USDScale)
	volume := fixedpoint.ParseDecimal(analytics.TotalVolumeUSD)
	analytics.TotalVolumeUSD = volume.StringFixed(fixedpoint.USDScale)
	analytics.TotalFeePaidUSD = fixedpoint.ParseDecimal(analytics.TotalFeePaidUSD).StringFixed(feePaidPlaces)
	analytics.TraderTier, analytics.FeeDiscountBps = TraderTier(volume)
	return tx.PutUserAnalytics(ctx, analytics)
}
