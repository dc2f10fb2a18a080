package curve

import (
	"math/big"

	"github.com/ALTree/bigfloat"

	"liquidityEngine/internal/fixedpoint"
)

const (
	defaultWeightBps = 5000
	floatPrecision   = 256
)

// Weighted prices Balancer-style weighted and multi-asset pools:
// out = reserveOut * (1 - (reserveIn / (reserveIn + in)) ^ (wIn / wOut)).
type Weighted struct{}

func (Weighted) Quote(in Input) (Output, error) {
	if err := validate(in); err != nil {
		return Output{}, err
	}
	fee, afterFee, err := splitFee(in)
	if err != nil {
		return Output{}, err
	}

	weightIn := in.WeightIn
	if weightIn == 0 {
		weightIn = defaultWeightBps
	}
	weightOut := in.WeightOut
	if weightOut == 0 {
		weightOut = defaultWeightBps
	}

	reserveIn := newFloat().SetInt(in.ReserveIn.ToBig())
	grown := newFloat().SetInt(new(big.Int).Add(in.ReserveIn.ToBig(), afterFee.ToBig()))
	balanceRatio := newFloat().Quo(grown, reserveIn)

	exponent := newFloat().Quo(
		newFloat().SetUint64(uint64(weightIn)),
		newFloat().SetUint64(uint64(weightOut)),
	)
	power := bigfloat.Pow(balanceRatio, exponent)
	keep := newFloat().Quo(newFloat().SetInt64(1), power)
	share := newFloat().Sub(newFloat().SetInt64(1), keep)

	outFloat := newFloat().Mul(newFloat().SetInt(in.ReserveOut.ToBig()), share)
	out, _ := outFloat.Int(nil)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	amountOut, err := fixedpoint.FromBig(out)
	if err != nil {
		return Output{}, err
	}
	return Output{AmountOut: amountOut, Fee: fee}, nil
}

func newFloat() *big.Float {
	return new(big.Float).SetPrec(floatPrecision)
}
