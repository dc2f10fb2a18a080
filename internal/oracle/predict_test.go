package oracle

import (
	"testing"
	"time"

	"liquidityEngine/internal/model"
)

func candlesClosingAt(values ...string) []model.PriceCandle {
	candles := make([]model.PriceCandle, len(values))
	for i, v := range values {
		candles[i] = model.PriceCandle{PoolID: "pool", Interval: IntervalHour, Close: v}
	}
	return candles
}

func TestPredictNeedsThreeCandles(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	got := Predict("pool", candlesClosingAt("1.5", "1"), now)
	if got.Price != "0" || got.Confidence != 10 || got.Direction != model.PriceStable || got.Samples != 2 {
		t.Fatalf("unexpected prediction %+v", got)
	}
	if !got.GeneratedAt.Equal(now) {
		t.Fatalf("generated at %s, want %s", got.GeneratedAt, now)
	}
}

func TestPredictRisingTrend(t *testing.T) {
	got := Predict("pool", candlesClosingAt("1.2", "1.1", "1.0"), time.Unix(0, 0))
	// mean 1.1, trend (1.2-1.0)/1.0 = 0.2, price 1.1 * 1.02
	if got.Price != "1.122" || got.Trend != "0.2" {
		t.Fatalf("price %s trend %s", got.Price, got.Trend)
	}
	if got.Direction != model.PriceUp {
		t.Fatalf("direction %s", got.Direction)
	}
	if got.Confidence != 90 {
		t.Fatalf("confidence %d, want clamp at 90", got.Confidence)
	}
}

func TestPredictFallingAndFlat(t *testing.T) {
	falling := Predict("pool", candlesClosingAt("1.0", "1.0", "1.1"), time.Unix(0, 0))
	if falling.Direction != model.PriceDown {
		t.Fatalf("direction %s, want down", falling.Direction)
	}

	flat := Predict("pool", candlesClosingAt("1", "1", "1"), time.Unix(0, 0))
	if flat.Direction != model.PriceStable || flat.Price != "1" || flat.Confidence != 90 {
		t.Fatalf("unexpected flat prediction %+v", flat)
	}
}

func TestPredictConfidenceTracksDispersion(t *testing.T) {
	// sd 0.6236 over mean 1.1667
	got := Predict("pool", candlesClosingAt("2", "1", "0.5"), time.Unix(0, 0))
	if got.Confidence != 46 {
		t.Fatalf("confidence %d, want 46", got.Confidence)
	}
	if got.Direction != model.PriceUp {
		t.Fatalf("direction %s", got.Direction)
	}
}
