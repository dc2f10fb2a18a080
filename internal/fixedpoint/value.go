package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// USDScale is the number of places kept on USD-style values.
const USDScale = 2

// Value converts base units to whole tokens. Valuation uses the
// one-token-one-dollar convention of the ledger store.
func Value(amount *uint256.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals))
}

// Ratio returns num/den as an exact rational, nil when den is zero.
func Ratio(num, den *uint256.Int) *big.Rat {
	if den == nil || den.IsZero() {
		return nil
	}
	return new(big.Rat).SetFrac(num.ToBig(), den.ToBig())
}

// ParseDecimal reads a stored decimal string, treating blanks as zero.
func ParseDecimal(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
