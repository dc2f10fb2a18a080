// Package oracle maintains cumulative price accumulators and hourly price
// candles derived from pool reserves.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

var ErrEmptyWindow = errors.New("observation window is empty")

// NextObservation derives the observation that follows prev. The reserves
// are those in effect since prev was taken. It reports false when either
// reserve is zero.
func NextObservation(poolID string, prev *model.TwapObservation, reserve0, reserve1 *uint256.Int, now time.Time) (model.TwapObservation, bool, error) {
	if reserve0 == nil || reserve1 == nil || reserve0.IsZero() || reserve1.IsZero() {
		return model.TwapObservation{}, false, nil
	}
	price0, err := fixedpoint.MulDiv(reserve0, fixedpoint.Precision, reserve1)
	if err != nil {
		return model.TwapObservation{}, false, fmt.Errorf("price0: %w", err)
	}
	price1, err := fixedpoint.MulDiv(reserve1, fixedpoint.Precision, reserve0)
	if err != nil {
		return model.TwapObservation{}, false, fmt.Errorf("price1: %w", err)
	}

	ts := now.Unix()
	elapsed := int64(1)
	cumulative0 := new(big.Int)
	cumulative1 := new(big.Int)
	var index uint64
	if prev != nil {
		elapsed = ts - prev.BlockTimestamp
		if elapsed < 0 {
			elapsed = 0
		}
		if cumulative0, err = parseCumulative(prev.Price0CumulativeX128); err != nil {
			return model.TwapObservation{}, false, err
		}
		if cumulative1, err = parseCumulative(prev.Price1CumulativeX128); err != nil {
			return model.TwapObservation{}, false, err
		}
		index = prev.ObservationIndex
	}

	dt := big.NewInt(elapsed)
	cumulative0.Add(cumulative0, new(big.Int).Mul(price0.ToBig(), dt))
	cumulative1.Add(cumulative1, new(big.Int).Mul(price1.ToBig(), dt))

	return model.TwapObservation{
		PoolID:               poolID,
		ObservationIndex:     index + 1,
		BlockTimestamp:       ts,
		Price0CumulativeX128: cumulative0.String(),
		Price1CumulativeX128: cumulative1.String(),
	}, true, nil
}

// AveragePrice returns the 1e18-scaled time-weighted prices between two
// observations of the same pool.
func AveragePrice(start, end model.TwapObservation) (price0, price1 *big.Int, err error) {
	elapsed := end.BlockTimestamp - start.BlockTimestamp
	if elapsed <= 0 {
		return nil, nil, fmt.Errorf("%w: %d..%d", ErrEmptyWindow, start.BlockTimestamp, end.BlockTimestamp)
	}
	if price0, err = averageOf(start.Price0CumulativeX128, end.Price0CumulativeX128, elapsed); err != nil {
		return nil, nil, fmt.Errorf("price0: %w", err)
	}
	if price1, err = averageOf(start.Price1CumulativeX128, end.Price1CumulativeX128, elapsed); err != nil {
		return nil, nil, fmt.Errorf("price1: %w", err)
	}
	return price0, price1, nil
}

func averageOf(startValue, endValue string, elapsed int64) (*big.Int, error) {
	from, err := parseCumulative(startValue)
	if err != nil {
		return nil, err
	}
	to, err := parseCumulative(endValue)
	if err != nil {
		return nil, err
	}
	delta := new(big.Int).Sub(to, from)
	if delta.Sign() < 0 {
		return nil, fmt.Errorf("cumulative decreased from %s to %s", startValue, endValue)
	}
	return delta.Quo(delta, big.NewInt(elapsed)), nil
}

func parseCumulative(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("invalid cumulative %q", value)
	}
	return out, nil
}
