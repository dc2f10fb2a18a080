package curve

import (
	"math/big"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
)

// Impact compares the spot price of a pool with the execution price of a swap.
type Impact struct {
	SpotPrice      *big.Rat
	ExecutionPrice *big.Rat
	Fraction       *big.Rat
}

// PriceImpact returns |spot - exec| / spot where spot = reserveOut/reserveIn
// and exec = amountOut/amountIn.
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut *uint256.Int) Impact {
	spot := fixedpoint.Ratio(reserveOut, reserveIn)
	if spot == nil {
		spot = new(big.Rat)
	}
	exec := fixedpoint.Ratio(amountOut, amountIn)
	if exec == nil {
		exec = new(big.Rat)
	}

	impact := new(big.Rat)
	if spot.Sign() != 0 {
		impact.Sub(spot, exec)
		impact.Abs(impact)
		impact.Quo(impact, spot)
	}
	return Impact{SpotPrice: spot, ExecutionPrice: exec, Fraction: impact}
}

// Bps floors the impact to whole basis points.
func (i Impact) Bps() uint32 {
	if i.Fraction == nil {
		return 0
	}
	scaled := new(big.Rat).Mul(i.Fraction, big.NewRat(fixedpoint.FeePrecision, 1))
	bps := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	if !bps.IsUint64() || bps.Uint64() > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(bps.Uint64())
}

// Float64 returns the impact as a fraction (0.01 = 1%).
func (i Impact) Float64() float64 {
	if i.Fraction == nil {
		return 0
	}
	f, _ := i.Fraction.Float64()
	return f
}
