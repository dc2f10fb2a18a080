package fixedpoint

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestISqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0:           0,
		1:           1,
		2:           1,
		3:           1,
		4:           2,
		15:          3,
		16:          4,
		100_000_000: 10_000,
		999_999:     999,
	}
	for in, want := range cases {
		got := ISqrt(uint256.NewInt(in))
		if got.Uint64() != want {
			t.Fatalf("isqrt(%d) = %s, want %d", in, got.Dec(), want)
		}
	}
}

func TestISqrtMaxValue(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := ISqrt(max)
	want := new(big.Int).Sqrt(max.ToBig())
	if got.ToBig().Cmp(want) != 0 {
		t.Fatalf("isqrt(max) = %s, want %s", got.Dec(), want)
	}
}

func TestFeeTruncates(t *testing.T) {
	fee, err := Fee(uint256.NewInt(1000), 4)
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if !fee.IsZero() {
		t.Fatalf("expected truncated fee 0, got %s", fee.Dec())
	}

	fee, err = Fee(uint256.NewInt(1000), 30)
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee.Uint64() != 3 {
		t.Fatalf("expected fee 3, got %s", fee.Dec())
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1000000000000000000000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.Dec() != "1000000000000000000000" {
		t.Fatalf("unexpected value %s", v.Dec())
	}

	if _, err := ParseAmount("-5"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := ParseAmount("12.5"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256).String()
	if _, err := ParseAmount(tooBig); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	a := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	b := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	d := new(uint256.Int).Lsh(uint256.NewInt(1), 150)
	got, err := MulDiv(a, b, d)
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 150)
	if !got.Eq(want) {
		t.Fatalf("muldiv = %s, want %s", got.Dec(), want.Dec())
	}

	if _, err := MulDiv(a, b, uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(a, b, Zero()); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestSubUnderflow(t *testing.T) {
	if _, err := Sub(uint256.NewInt(1), uint256.NewInt(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestApplySlippage(t *testing.T) {
	got, err := ApplySlippage(uint256.NewInt(10_000), 50)
	if err != nil {
		t.Fatalf("slippage: %v", err)
	}
	if got.Uint64() != 9_950 {
		t.Fatalf("expected 9950, got %s", got.Dec())
	}
}

func TestValue(t *testing.T) {
	v := Value(uint256.NewInt(1_500_000), 6)
	if v.String() != "1.5" {
		t.Fatalf("expected 1.5, got %s", v.String())
	}
}
