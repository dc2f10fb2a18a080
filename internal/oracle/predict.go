package oracle

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

const (
	minPredictionSamples = 3
	minConfidence        = 10
	maxConfidence        = 90
)

var (
	trendDamping   = decimal.RequireFromString("0.1")
	trendThreshold = decimal.RequireFromString("0.01")
)

// Predict extrapolates the next price from hourly candles ordered newest
// first. The trend is the relative move from the oldest to the newest
// close; the prediction applies a tenth of it to the mean close.
// Confidence falls with the coefficient of variation and is clamped to
// [10, 90].
func Predict(poolID string, candles []model.PriceCandle, now time.Time) model.PricePrediction {
	prediction := model.PricePrediction{
		PoolID:      poolID,
		Price:       "0",
		Trend:       "0",
		Confidence:  minConfidence,
		Direction:   model.PriceStable,
		Samples:     len(candles),
		GeneratedAt: now.UTC(),
	}
	if len(candles) < minPredictionSamples {
		return prediction
	}

	closes := make([]decimal.Decimal, len(candles))
	sum := decimal.Zero
	for i, c := range candles {
		closes[i] = fixedpoint.ParseDecimal(c.Close)
		sum = sum.Add(closes[i])
	}
	mean := sum.DivRound(decimal.NewFromInt(int64(len(closes))), pricePlaces)
	oldest := closes[len(closes)-1]
	if mean.IsZero() || oldest.IsZero() {
		return prediction
	}
	trend := closes[0].Sub(oldest).DivRound(oldest, pricePlaces)

	prediction.Price = mean.Mul(decimal.NewFromInt(1).Add(trend.Mul(trendDamping))).Round(pricePlaces).String()
	prediction.Trend = trend.String()
	prediction.Confidence = confidence(closes, mean)
	switch {
	case trend.GreaterThan(trendThreshold):
		prediction.Direction = model.PriceUp
	case trend.LessThan(trendThreshold.Neg()):
		prediction.Direction = model.PriceDown
	}
	return prediction
}

func confidence(closes []decimal.Decimal, mean decimal.Decimal) int {
	m := mean.InexactFloat64()
	var variance float64
	for _, c := range closes {
		d := c.InexactFloat64() - m
		variance += d * d
	}
	variance /= float64(len(closes))
	score := int(math.Floor((1 - math.Sqrt(variance)/m) * 100))
	return min(max(score, minConfidence), maxConfidence)
}
