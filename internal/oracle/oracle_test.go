package oracle

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityEngine/internal/model"
)

func TestNextObservationFirst(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	obs, ok, err := NextObservation("pool", nil, uint256.NewInt(2000), uint256.NewInt(1000), now)
	if err != nil || !ok {
		t.Fatalf("next observation: ok=%v err=%v", ok, err)
	}
	if obs.ObservationIndex != 1 || obs.BlockTimestamp != now.Unix() {
		t.Fatalf("unexpected observation %+v", obs)
	}
	// price0 = 2e18 over one second, price1 = 0.5e18
	if obs.Price0CumulativeX128 != "2000000000000000000" || obs.Price1CumulativeX128 != "500000000000000000" {
		t.Fatalf("unexpected cumulatives %s / %s", obs.Price0CumulativeX128, obs.Price1CumulativeX128)
	}
}

func TestNextObservationAccumulates(t *testing.T) {
	prev := model.TwapObservation{
		PoolID:               "pool",
		ObservationIndex:     4,
		BlockTimestamp:       1_700_000_000,
		Price0CumulativeX128: "100",
		Price1CumulativeX128: "200",
	}
	now := time.Unix(1_700_000_010, 0)
	obs, ok, err := NextObservation("pool", &prev, uint256.NewInt(1000), uint256.NewInt(1000), now)
	if err != nil || !ok {
		t.Fatalf("next observation: ok=%v err=%v", ok, err)
	}
	if obs.ObservationIndex != 5 {
		t.Fatalf("expected index 5, got %d", obs.ObservationIndex)
	}
	if obs.Price0CumulativeX128 != "10000000000000000100" || obs.Price1CumulativeX128 != "10000000000000000200" {
		t.Fatalf("unexpected cumulatives %s / %s", obs.Price0CumulativeX128, obs.Price1CumulativeX128)
	}
}

func TestNextObservationSkipsEmptyReserve(t *testing.T) {
	_, ok, err := NextObservation("pool", nil, uint256.NewInt(0), uint256.NewInt(10), time.Now())
	if err != nil || ok {
		t.Fatalf("expected skip, ok=%v err=%v", ok, err)
	}
}

func TestAveragePrice(t *testing.T) {
	start := model.TwapObservation{BlockTimestamp: 100, Price0CumulativeX128: "1000", Price1CumulativeX128: "0"}
	end := model.TwapObservation{BlockTimestamp: 110, Price0CumulativeX128: "3000", Price1CumulativeX128: "50"}
	p0, p1, err := AveragePrice(start, end)
	if err != nil {
		t.Fatalf("average price: %v", err)
	}
	if p0.Int64() != 200 || p1.Int64() != 5 {
		t.Fatalf("unexpected averages %s / %s", p0, p1)
	}
	if _, _, err := AveragePrice(end, end); !errors.Is(err, ErrEmptyWindow) {
		t.Fatalf("expected empty window, got %v", err)
	}
}

func TestApplyTradeOpensAndUpdatesCandle(t *testing.T) {
	now := time.Date(2024, 5, 1, 13, 25, 0, 0, time.UTC)
	candle, err := ApplyTrade(nil, "pool", decimal.RequireFromString("2"), uint256.NewInt(100), now)
	if err != nil {
		t.Fatalf("apply trade: %v", err)
	}
	if !candle.PeriodStart.Equal(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)) || candle.Interval != IntervalHour {
		t.Fatalf("unexpected window %+v", candle)
	}

	candle, err = ApplyTrade(&candle, "pool", decimal.RequireFromString("2.5"), uint256.NewInt(50), now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("apply trade: %v", err)
	}
	candle, err = ApplyTrade(&candle, "pool", decimal.RequireFromString("1.5"), uint256.NewInt(25), now.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("apply trade: %v", err)
	}
	if candle.Open != "2" || candle.High != "2.5" || candle.Low != "1.5" || candle.Close != "1.5" {
		t.Fatalf("unexpected ohlc %+v", candle)
	}
	if candle.Volume != "175" || candle.TradeCount != 3 {
		t.Fatalf("unexpected volume %s count %d", candle.Volume, candle.TradeCount)
	}

	next, err := ApplyTrade(&candle, "pool", decimal.RequireFromString("3"), uint256.NewInt(1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("apply trade: %v", err)
	}
	if next.TradeCount != 1 || next.Open != "3" {
		t.Fatalf("expected a fresh candle, got %+v", next)
	}
}

func TestSpotPrice(t *testing.T) {
	p, ok := SpotPrice(uint256.NewInt(1), uint256.NewInt(3))
	if !ok || p.StringFixed(4) != "0.3333" {
		t.Fatalf("unexpected spot price %s ok=%v", p, ok)
	}
	if _, ok := SpotPrice(uint256.NewInt(1), uint256.NewInt(0)); ok {
		t.Fatalf("expected no price for empty reserve")
	}
}

func TestVolatility(t *testing.T) {
	if v := Volatility([]model.PriceCandle{{Close: "1"}}); v != 0 {
		t.Fatalf("expected zero volatility, got %f", v)
	}
	// mean 2, population sigma 1
	v := Volatility([]model.PriceCandle{{Close: "1"}, {Close: "3"}})
	if math.Abs(v-50) > 1e-9 {
		t.Fatalf("expected 50, got %f", v)
	}
}
