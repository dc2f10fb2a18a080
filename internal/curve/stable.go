package curve

import (
	"fmt"
	"math/big"

	"liquidityEngine/internal/fixedpoint"
)

// DefaultAmplification is the stable-swap A coefficient.
const DefaultAmplification = 100

// StableSwap prices two-asset pools on the Curve invariant.
type StableSwap struct {
	Amplification int64
}

func (s StableSwap) Quote(in Input) (Output, error) {
	if err := validate(in); err != nil {
		return Output{}, err
	}
	fee, afterFee, err := splitFee(in)
	if err != nil {
		return Output{}, err
	}

	amp := s.Amplification
	if amp <= 0 {
		amp = DefaultAmplification
	}
	a := big.NewInt(amp)
	x := in.ReserveIn.ToBig()
	y := in.ReserveOut.ToBig()

	d := stableInvariant(x, y, a)
	newX := new(big.Int).Add(x, afterFee.ToBig())
	newY, err := stableY(newX, d, a)
	if err != nil {
		return Output{}, err
	}

	out := new(big.Int).Sub(y, newY)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	amountOut, err := fixedpoint.FromBig(out)
	if err != nil {
		return Output{}, err
	}
	return Output{AmountOut: amountOut, Fee: fee}, nil
}

// stableInvariant solves D for reserves (x, y) with Ann = 2A.
func stableInvariant(x, y, a *big.Int) *big.Int {
	sum := new(big.Int).Add(x, y)
	if sum.Sign() == 0 {
		return new(big.Int)
	}

	two := big.NewInt(2)
	three := big.NewInt(3)
	ann := new(big.Int).Mul(a, two)
	annMinusOne := new(big.Int).Sub(ann, big.NewInt(1))
	xy4 := new(big.Int).Mul(x, y)
	xy4.Mul(xy4, big.NewInt(4))

	d := new(big.Int).Set(sum)
	for i := 0; i < fixedpoint.MaxIterations; i++ {
		dp := new(big.Int).Mul(d, d)
		dp.Mul(dp, d)
		dp.Quo(dp, xy4)
		prev := new(big.Int).Set(d)

		num := new(big.Int).Mul(ann, sum)
		num.Add(num, new(big.Int).Mul(dp, two))
		num.Mul(num, d)
		den := new(big.Int).Mul(annMinusOne, d)
		den.Add(den, new(big.Int).Mul(three, dp))
		d.Quo(num, den)

		if withinOne(d, prev) {
			break
		}
	}
	return d
}

// stableY solves the out-side reserve for a new in-side reserve x.
func stableY(x, d, a *big.Int) (*big.Int, error) {
	two := big.NewInt(2)
	ann := new(big.Int).Mul(a, two)

	c := new(big.Int).Mul(d, d)
	c.Quo(c, new(big.Int).Mul(x, two))
	c.Mul(c, d)
	c.Quo(c, new(big.Int).Mul(ann, two))
	b := new(big.Int).Add(x, new(big.Int).Quo(d, ann))

	y := new(big.Int).Set(d)
	for i := 0; i < fixedpoint.MaxIterations; i++ {
		prev := new(big.Int).Set(y)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Mul(two, y)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			return nil, fmt.Errorf("%w: stable swap solver diverged", ErrInsufficientLiquidity)
		}
		y.Quo(num, den)

		if withinOne(y, prev) {
			break
		}
	}
	return y, nil
}

func withinOne(a, b *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(big.NewInt(1)) <= 0
}
