package curve

import (
	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
)

// ConstantProduct is the x*y=k curve.
type ConstantProduct struct{}

func (ConstantProduct) Quote(in Input) (Output, error) {
	if err := validate(in); err != nil {
		return Output{}, err
	}
	fee, afterFee, err := splitFee(in)
	if err != nil {
		return Output{}, err
	}
	out, err := constantProductOut(afterFee, in.ReserveIn, in.ReserveOut)
	if err != nil {
		return Output{}, err
	}
	return Output{AmountOut: out, Fee: fee}, nil
}

func constantProductOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	denominator, err := fixedpoint.Add(reserveIn, amountIn)
	if err != nil {
		return nil, err
	}
	if denominator.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(amountIn, reserveOut, denominator)
}
