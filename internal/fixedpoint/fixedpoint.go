package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// FeePrecision is the basis-point denominator.
	FeePrecision = 10000
	// MinimumLiquidity is burned from the first deposit into a pool.
	MinimumLiquidity = 1000
	// MaxIterations bounds every Newton loop in the engine.
	MaxIterations = 255
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Precision is the 1e18 fixed-point scale. Treat as read-only.
var Precision = uint256.NewInt(1_000_000_000_000_000_000)

// Zero returns a fresh zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// ParseAmount parses a base-unit decimal integer string.
func ParseAmount(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Zero(), nil
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOverflow, value, err)
	}
	return parsed, nil
}

// FromBig converts a non-negative big.Int, failing above 256 bits.
func FromBig(value *big.Int) (*uint256.Int, error) {
	if value == nil {
		return Zero(), nil
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnderflow, value)
	}
	out, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, value)
	}
	return out, nil
}

func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return out, nil
}

func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, a.Dec(), b.Dec())
	}
	return out, nil
}

func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s", ErrOverflow, a.Dec(), b.Dec())
	}
	return out, nil
}

// MulDiv returns floor(a*b/d) with a 512-bit intermediate product.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	out, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, a.Dec(), b.Dec(), d.Dec())
	}
	return out, nil
}

// Div truncates toward zero.
func Div(a, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, d), nil
}

// Fee returns amount * bps / 10000.
func Fee(amount *uint256.Int, bps uint32) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(uint64(bps)), uint256.NewInt(FeePrecision))
}

// ApplySlippage returns amount * (10000 - bps) / 10000.
func ApplySlippage(amount *uint256.Int, bps uint32) (*uint256.Int, error) {
	if bps > FeePrecision {
		return nil, fmt.Errorf("%w: slippage %d bps", ErrInvalidAmount, bps)
	}
	return MulDiv(amount, uint256.NewInt(uint64(FeePrecision-bps)), uint256.NewInt(FeePrecision))
}

// Product multiplies all values together.
func Product(values []*uint256.Int) (*uint256.Int, error) {
	acc := uint256.NewInt(1)
	for _, v := range values {
		next, err := Mul(acc, v)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// ISqrt is the integer square root by Newton's method.
func ISqrt(value *uint256.Int) *uint256.Int {
	if value.LtUint64(2) {
		return new(uint256.Int).Set(value)
	}
	x := new(uint256.Int).Set(value)
	// (x+1)/2 without overflowing at 2^256-1
	y := new(uint256.Int).Rsh(x, 1)
	if x.Uint64()&1 == 1 {
		y.AddUint64(y, 1)
	}
	q := new(uint256.Int)
	for i := 0; i < MaxIterations && y.Lt(x); i++ {
		x.Set(y)
		q.Div(value, x)
		// floor((x+q)/2) computed as x/2 + q/2 + (x&q&1)
		carry := x.Uint64() & q.Uint64() & 1
		y.Rsh(x, 1)
		y.Add(y, new(uint256.Int).Rsh(q, 1))
		y.AddUint64(y, carry)
	}
	return x
}

func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
