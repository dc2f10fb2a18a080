package curve

import (
	"slices"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
)

// Concentrated walks ticks in index order, filling each with a local
// constant-product trade capped at half of the tick's scaled in-reserve.
// Input left over once the ticks are exhausted earns no output.
type Concentrated struct{}

func (Concentrated) Quote(in Input) (Output, error) {
	if len(in.Ticks) == 0 {
		return ConstantProduct{}.Quote(in)
	}
	if err := validate(in); err != nil {
		return Output{}, err
	}
	fee, afterFee, err := splitFee(in)
	if err != nil {
		return Output{}, err
	}

	ticks := slices.Clone(in.Ticks)
	slices.SortStableFunc(ticks, func(a, b Tick) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})

	remaining := new(uint256.Int).Set(afterFee)
	total := fixedpoint.Zero()
	two := uint256.NewInt(2)

	for _, tick := range ticks {
		if remaining.IsZero() {
			break
		}
		if tick.Liquidity == nil || tick.Liquidity.IsZero() {
			continue
		}
		tickReserveIn, err := fixedpoint.MulDiv(tick.Liquidity, in.ReserveIn, fixedpoint.Precision)
		if err != nil {
			return Output{}, err
		}
		tickReserveOut, err := fixedpoint.MulDiv(tick.Liquidity, in.ReserveOut, fixedpoint.Precision)
		if err != nil {
			return Output{}, err
		}
		if tickReserveIn.IsZero() {
			continue
		}

		maxForTick := new(uint256.Int).Div(tickReserveIn, two)
		fill := new(uint256.Int).Set(fixedpoint.Min(remaining, maxForTick))

		out, err := constantProductOut(fill, tickReserveIn, tickReserveOut)
		if err != nil {
			return Output{}, err
		}
		if total, err = fixedpoint.Add(total, out); err != nil {
			return Output{}, err
		}
		remaining.Sub(remaining, fill)
	}

	return Output{AmountOut: total, Fee: fee}, nil
}
