package curve

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func mustParse(t *testing.T, v string) *uint256.Int {
	t.Helper()
	out, err := fixedpoint.ParseAmount(v)
	if err != nil {
		t.Fatalf("parse %s: %v", v, err)
	}
	return out
}

func TestConstantProductKnownValue(t *testing.T) {
	out, err := ConstantProduct{}.Quote(Input{
		AmountIn:   u(1000),
		ReserveIn:  u(100_000),
		ReserveOut: u(200_000),
		FeeTierBps: 30,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// fee = 3, after fee = 997, out = 997*200000/100997
	if out.Fee.Uint64() != 3 {
		t.Fatalf("fee mismatch: %s", out.Fee.Dec())
	}
	if out.AmountOut.Uint64() != 1974 {
		t.Fatalf("amount out mismatch: %s", out.AmountOut.Dec())
	}
}

func TestConstantProductMonotonicInAmount(t *testing.T) {
	reserveIn := mustParse(t, "1000000000000000000000000")
	reserveOut := mustParse(t, "500000000000000000000000")

	prev := fixedpoint.Zero()
	for _, amount := range []string{"1000000000000000000", "2000000000000000000", "5000000000000000000", "90000000000000000000000"} {
		out, err := ConstantProduct{}.Quote(Input{AmountIn: mustParse(t, amount), ReserveIn: reserveIn, ReserveOut: reserveOut, FeeTierBps: 30})
		if err != nil {
			t.Fatalf("quote %s: %v", amount, err)
		}
		if !out.AmountOut.Gt(prev) {
			t.Fatalf("amount out not increasing at %s: %s <= %s", amount, out.AmountOut.Dec(), prev.Dec())
		}
		prev = out.AmountOut
	}
}

func TestConstantProductDecreasingInFee(t *testing.T) {
	in := Input{
		AmountIn:   mustParse(t, "10000000000000000000"),
		ReserveIn:  mustParse(t, "1000000000000000000000"),
		ReserveOut: mustParse(t, "1000000000000000000000"),
	}

	var prev *uint256.Int
	for _, fee := range []uint32{1, 5, 30, 100, 1000} {
		in.FeeTierBps = fee
		out, err := ConstantProduct{}.Quote(in)
		if err != nil {
			t.Fatalf("quote fee %d: %v", fee, err)
		}
		if prev != nil && !out.AmountOut.Lt(prev) {
			t.Fatalf("amount out not decreasing at fee %d: %s >= %s", fee, out.AmountOut.Dec(), prev.Dec())
		}
		prev = out.AmountOut
	}
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	if _, err := (ConstantProduct{}).Quote(Input{AmountIn: u(0), ReserveIn: u(1), ReserveOut: u(1)}); !errors.Is(err, fixedpoint.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := (ConstantProduct{}).Quote(Input{AmountIn: u(1), ReserveIn: u(0), ReserveOut: u(1)}); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestStableSwapNearPeg(t *testing.T) {
	out, err := StableSwap{Amplification: DefaultAmplification}.Quote(Input{
		AmountIn:   u(1000),
		ReserveIn:  u(1_000_000),
		ReserveOut: u(1_000_000),
		FeeTierBps: 30,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	afterFee := int64(1000 - out.Fee.Uint64())
	diff := int64(out.AmountOut.Uint64()) - afterFee
	if diff < 0 {
		diff = -diff
	}
	// within 0.5%
	if diff*1000 > afterFee*5 {
		t.Fatalf("stable swap off peg: out=%s after fee=%d", out.AmountOut.Dec(), afterFee)
	}
}

func TestStableSwapBeatsConstantProductNearPeg(t *testing.T) {
	in := Input{
		AmountIn:   mustParse(t, "10000000000000000000000"),
		ReserveIn:  mustParse(t, "1000000000000000000000000"),
		ReserveOut: mustParse(t, "1000000000000000000000000"),
		FeeTierBps: 4,
	}
	stable, err := StableSwap{}.Quote(in)
	if err != nil {
		t.Fatalf("stable: %v", err)
	}
	cp, err := ConstantProduct{}.Quote(in)
	if err != nil {
		t.Fatalf("constant product: %v", err)
	}
	if !stable.AmountOut.Gt(cp.AmountOut) {
		t.Fatalf("expected stable output %s > constant product %s", stable.AmountOut.Dec(), cp.AmountOut.Dec())
	}
	if !stable.AmountOut.Lt(in.ReserveOut) {
		t.Fatalf("stable output exceeds reserve")
	}
}

func TestConcentratedFallsBackWithoutTicks(t *testing.T) {
	in := Input{AmountIn: u(1000), ReserveIn: u(100_000), ReserveOut: u(200_000), FeeTierBps: 30}
	conc, err := Concentrated{}.Quote(in)
	if err != nil {
		t.Fatalf("concentrated: %v", err)
	}
	cp, err := ConstantProduct{}.Quote(in)
	if err != nil {
		t.Fatalf("constant product: %v", err)
	}
	if !conc.AmountOut.Eq(cp.AmountOut) || !conc.Fee.Eq(cp.Fee) {
		t.Fatalf("fallback mismatch: %s/%s vs %s/%s", conc.AmountOut.Dec(), conc.Fee.Dec(), cp.AmountOut.Dec(), cp.Fee.Dec())
	}
}

func TestConcentratedWalksTicksInOrder(t *testing.T) {
	half := mustParse(t, "500000000000000000")
	tenth := mustParse(t, "100000000000000000")
	in := Input{
		AmountIn:   u(80_000),
		ReserveIn:  u(1_000_000),
		ReserveOut: u(1_000_000),
		FeeTierBps: 0,
		// deliberately unsorted
		Ticks: []Tick{{Index: 20, Liquidity: half}, {Index: -10, Liquidity: tenth}},
	}
	out, err := Concentrated{}.Quote(in)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// tick -10: reserves 100000/100000, fill 50000 -> 50000*100000/150000 = 33333
	// tick 20: reserves 500000/500000, fill 30000 -> 30000*500000/530000 = 28301
	if out.AmountOut.Uint64() != 33333+28301 {
		t.Fatalf("tick walk mismatch: %s", out.AmountOut.Dec())
	}
}

func TestConcentratedStopsWhenTicksExhausted(t *testing.T) {
	tenth := mustParse(t, "100000000000000000")
	out, err := Concentrated{}.Quote(Input{
		AmountIn:   u(500_000),
		ReserveIn:  u(1_000_000),
		ReserveOut: u(1_000_000),
		Ticks:      []Tick{{Index: 0, Liquidity: tenth}},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.AmountOut.Uint64() != 33333 {
		t.Fatalf("expected only the first tick to fill, got %s", out.AmountOut.Dec())
	}
}

func TestWeightedEqualWeightsMatchesConstantProduct(t *testing.T) {
	in := Input{
		AmountIn:   mustParse(t, "3000000000000000000"),
		ReserveIn:  mustParse(t, "1000000000000000000000"),
		ReserveOut: mustParse(t, "2000000000000000000000"),
		FeeTierBps: 30,
		WeightIn:   5000,
		WeightOut:  5000,
	}
	w, err := Weighted{}.Quote(in)
	if err != nil {
		t.Fatalf("weighted: %v", err)
	}
	cp, err := ConstantProduct{}.Quote(in)
	if err != nil {
		t.Fatalf("constant product: %v", err)
	}
	diff := new(uint256.Int)
	if w.AmountOut.Gt(cp.AmountOut) {
		diff.Sub(w.AmountOut, cp.AmountOut)
	} else {
		diff.Sub(cp.AmountOut, w.AmountOut)
	}
	if diff.GtUint64(1) {
		t.Fatalf("weighted %s vs constant product %s", w.AmountOut.Dec(), cp.AmountOut.Dec())
	}
}

func TestWeightedHeavierInputWeightPaysMore(t *testing.T) {
	base := Input{
		AmountIn:   mustParse(t, "10000000000000000000"),
		ReserveIn:  mustParse(t, "1000000000000000000000"),
		ReserveOut: mustParse(t, "1000000000000000000000"),
		FeeTierBps: 30,
	}
	balanced := base
	balanced.WeightIn, balanced.WeightOut = 5000, 5000
	skewed := base
	skewed.WeightIn, skewed.WeightOut = 8000, 2000

	b, err := Weighted{}.Quote(balanced)
	if err != nil {
		t.Fatalf("balanced: %v", err)
	}
	s, err := Weighted{}.Quote(skewed)
	if err != nil {
		t.Fatalf("skewed: %v", err)
	}
	if !s.AmountOut.Gt(b.AmountOut) {
		t.Fatalf("expected 80/20 output %s > 50/50 output %s", s.AmountOut.Dec(), b.AmountOut.Dec())
	}
}

func TestForPoolType(t *testing.T) {
	for _, pt := range []model.PoolType{
		model.PoolTypeConstantProduct, model.PoolTypeStandard, model.PoolTypeStable,
		model.PoolTypeConcentrated, model.PoolTypeMultiAsset, model.PoolTypeWeighted,
	} {
		if _, err := ForPoolType(pt); err != nil {
			t.Fatalf("pool type %s: %v", pt, err)
		}
	}
	if _, err := ForPoolType("orderbook"); !errors.Is(err, ErrUnsupportedPoolType) {
		t.Fatalf("expected unsupported pool type, got %v", err)
	}
}

func TestPriceImpact(t *testing.T) {
	impact := PriceImpact(u(1000), u(1974), u(100_000), u(200_000))
	// spot 2, exec 1.974 -> 1.3%
	if impact.Bps() != 130 {
		t.Fatalf("impact bps mismatch: %d", impact.Bps())
	}
	if f := impact.Float64(); f < 0.0129 || f > 0.0131 {
		t.Fatalf("impact fraction mismatch: %f", f)
	}
}
