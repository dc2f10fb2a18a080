package oracle

import (
	"math"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

const (
	IntervalHour = "1h"
	// HistoryWindow is the number of hourly candles used for volatility.
	HistoryWindow = 24

	hourSeconds = 3600
	pricePlaces = 18
)

// SpotPrice is reserve0/reserve1 to 18 places. ok is false when reserve1 is zero.
func SpotPrice(reserve0, reserve1 *uint256.Int) (decimal.Decimal, bool) {
	if reserve0 == nil || reserve1 == nil || reserve1.IsZero() {
		return decimal.Zero, false
	}
	num := decimal.NewFromBigInt(reserve0.ToBig(), 0)
	den := decimal.NewFromBigInt(reserve1.ToBig(), 0)
	return num.DivRound(den, pricePlaces), true
}

// HourStart truncates a time to the start of its UTC hour.
func HourStart(t time.Time) time.Time {
	ts := t.Unix()
	return time.Unix(ts-ts%hourSeconds, 0).UTC()
}

// ApplyTrade folds one trade into the hourly candle that contains now.
// existing may be nil or belong to an older hour, in which case a new
// candle is opened at price.
func ApplyTrade(existing *model.PriceCandle, poolID string, price decimal.Decimal, volume *uint256.Int, now time.Time) (model.PriceCandle, error) {
	start := HourStart(now)
	if existing == nil || !existing.PeriodStart.Equal(start) {
		p := price.String()
		existing = &model.PriceCandle{
			PoolID:      poolID,
			Interval:    IntervalHour,
			PeriodStart: start,
			PeriodEnd:   start.Add(hourSeconds * time.Second),
			Open:        p,
			High:        p,
			Low:         p,
			Close:       p,
			Volume:      "0",
		}
	}
	candle := *existing

	if high := fixedpoint.ParseDecimal(candle.High); price.GreaterThan(high) {
		candle.High = price.String()
	}
	if low := fixedpoint.ParseDecimal(candle.Low); price.LessThan(low) {
		candle.Low = price.String()
	}
	candle.Close = price.String()

	current, err := fixedpoint.ParseAmount(candle.Volume)
	if err != nil {
		return model.PriceCandle{}, err
	}
	if volume != nil {
		if current, err = fixedpoint.Add(current, volume); err != nil {
			return model.PriceCandle{}, err
		}
	}
	candle.Volume = current.Dec()
	candle.TradeCount++
	return candle, nil
}

// Volatility is the population standard deviation of closes divided by
// their mean, as a percentage. Fewer than two closes yield zero.
func Volatility(candles []model.PriceCandle) float64 {
	if len(candles) < 2 {
		return 0
	}
	closes := make([]float64, 0, len(candles))
	var sum float64
	for _, c := range candles {
		v := fixedpoint.ParseDecimal(c.Close).InexactFloat64()
		closes = append(closes, v)
		sum += v
	}
	mean := sum / float64(len(closes))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range closes {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(closes))
	return math.Sqrt(variance) / mean * 100
}
