// Package liquidity mints and burns LP shares against pool reserves.
package liquidity

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityEngine/internal/curve"
	"liquidityEngine/internal/fixedpoint"
)

var (
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrMinimumLpNotMet             = errors.New("minimum lp tokens not met")
	ErrMinimumAmountNotMet         = errors.New("minimum amount not met")
	ErrInvalidPercentage           = errors.New("percentage must be in [0.01, 100]")
)

// AddQuote is the result of pricing a deposit. Amounts is aligned with the
// pool's assets and holds what is actually credited to each reserve.
type AddQuote struct {
	LPTokens    *uint256.Int
	Burned      *uint256.Int
	Amounts     []*uint256.Int
	ShareOfPool decimal.Decimal
}

// RemoveQuote is the result of pricing a withdrawal.
type RemoveQuote struct {
	Burn          *uint256.Int
	Remaining     *uint256.Int
	Amounts       []*uint256.Int
	ShareRedeemed decimal.Decimal
}

// Closed reports whether the withdrawal leaves the position empty.
func (q RemoveQuote) Closed() bool {
	return q.Remaining == nil || q.Remaining.IsZero()
}

// QuoteAdd prices a deposit of amounts (aligned with reserves, nil or zero
// meaning "not supplied") into a pool with the given LP supply.
func QuoteAdd(totalSupply *uint256.Int, reserves, amounts []*uint256.Int) (AddQuote, error) {
	if len(amounts) != len(reserves) {
		return AddQuote{}, fmt.Errorf("%w: %d amounts for %d assets", fixedpoint.ErrInvalidAmount, len(amounts), len(reserves))
	}
	if totalSupply == nil || totalSupply.IsZero() {
		return quoteFirstDeposit(amounts)
	}

	var minRatio *uint256.Int
	for i, amount := range amounts {
		if amount == nil || amount.IsZero() {
			continue
		}
		if reserves[i].IsZero() {
			return AddQuote{}, fmt.Errorf("asset %d: %w", i, curve.ErrInsufficientLiquidity)
		}
		ratio, err := fixedpoint.MulDiv(amount, fixedpoint.Precision, reserves[i])
		if err != nil {
			return AddQuote{}, fmt.Errorf("ratio asset %d: %w", i, err)
		}
		if minRatio == nil || ratio.Lt(minRatio) {
			minRatio = ratio
		}
	}
	if minRatio == nil {
		return AddQuote{}, fmt.Errorf("%w: no amounts supplied", fixedpoint.ErrInvalidAmount)
	}

	minted, err := fixedpoint.MulDiv(totalSupply, minRatio, fixedpoint.Precision)
	if err != nil {
		return AddQuote{}, fmt.Errorf("mint: %w", err)
	}
	if minted.IsZero() {
		return AddQuote{}, ErrInsufficientLiquidityMinted
	}

	required := make([]*uint256.Int, len(reserves))
	for i, reserve := range reserves {
		if required[i], err = fixedpoint.MulDiv(reserve, minRatio, fixedpoint.Precision); err != nil {
			return AddQuote{}, fmt.Errorf("required asset %d: %w", i, err)
		}
	}

	newSupply, err := fixedpoint.Add(totalSupply, minted)
	if err != nil {
		return AddQuote{}, err
	}
	return AddQuote{
		LPTokens:    minted,
		Burned:      fixedpoint.Zero(),
		Amounts:     required,
		ShareOfPool: percentOf(minted, newSupply),
	}, nil
}

func quoteFirstDeposit(amounts []*uint256.Int) (AddQuote, error) {
	credited := make([]*uint256.Int, len(amounts))
	for i, amount := range amounts {
		if amount == nil || amount.IsZero() {
			return AddQuote{}, fmt.Errorf("%w: first deposit must fund asset %d", fixedpoint.ErrInvalidAmount, i)
		}
		credited[i] = new(uint256.Int).Set(amount)
	}
	product, err := fixedpoint.Product(credited)
	if err != nil {
		return AddQuote{}, fmt.Errorf("first deposit product: %w", err)
	}
	root := fixedpoint.ISqrt(product)
	if !root.GtUint64(fixedpoint.MinimumLiquidity) {
		return AddQuote{}, fmt.Errorf("%w: sqrt %s <= %d", ErrInsufficientLiquidityMinted, root.Dec(), fixedpoint.MinimumLiquidity)
	}
	burned := uint256.NewInt(fixedpoint.MinimumLiquidity)
	return AddQuote{
		LPTokens:    new(uint256.Int).Sub(root, burned),
		Burned:      burned,
		Amounts:     credited,
		ShareOfPool: decimal.NewFromInt(100),
	}, nil
}

// Check enforces the caller's minimum share floor.
func (q AddQuote) Check(minLPTokens *uint256.Int) error {
	if minLPTokens != nil && q.LPTokens.Lt(minLPTokens) {
		return fmt.Errorf("%w: minted %s < %s", ErrMinimumLpNotMet, q.LPTokens.Dec(), minLPTokens.Dec())
	}
	return nil
}

// QuoteRemove prices withdrawing percentage (0.01-100, two decimal places
// honoured) of a position's shares.
func QuoteRemove(shares, totalSupply *uint256.Int, reserves []*uint256.Int, percentage float64) (RemoveQuote, error) {
	if math.IsNaN(percentage) || percentage <= 0 || percentage > 100 {
		return RemoveQuote{}, fmt.Errorf("%w: %v", ErrInvalidPercentage, percentage)
	}
	if totalSupply == nil || totalSupply.IsZero() {
		return RemoveQuote{}, curve.ErrInsufficientLiquidity
	}
	basis := uint64(math.Floor(percentage * 100))
	if basis == 0 {
		return RemoveQuote{}, fmt.Errorf("%w: %v is below 0.01", ErrInvalidPercentage, percentage)
	}
	burn, err := fixedpoint.MulDiv(shares, uint256.NewInt(basis), uint256.NewInt(fixedpoint.FeePrecision))
	if err != nil {
		return RemoveQuote{}, fmt.Errorf("burn: %w", err)
	}
	if burn.Gt(totalSupply) {
		return RemoveQuote{}, fmt.Errorf("%w: burn %s exceeds supply %s", fixedpoint.ErrUnderflow, burn.Dec(), totalSupply.Dec())
	}
	remaining, err := fixedpoint.Sub(shares, burn)
	if err != nil {
		return RemoveQuote{}, err
	}

	payouts := make([]*uint256.Int, len(reserves))
	for i, reserve := range reserves {
		if payouts[i], err = fixedpoint.MulDiv(reserve, burn, totalSupply); err != nil {
			return RemoveQuote{}, fmt.Errorf("payout asset %d: %w", i, err)
		}
	}
	return RemoveQuote{
		Burn:          burn,
		Remaining:     remaining,
		Amounts:       payouts,
		ShareRedeemed: decimal.NewFromInt(int64(basis)).Shift(-2),
	}, nil
}

// Check enforces per-asset payout floors. mins is aligned with the pool's
// assets; nil entries carry no floor.
func (q RemoveQuote) Check(mins []*uint256.Int) error {
	for i, minimum := range mins {
		if minimum == nil || i >= len(q.Amounts) {
			continue
		}
		if q.Amounts[i].Lt(minimum) {
			return fmt.Errorf("%w: asset %d pays %s < %s", ErrMinimumAmountNotMet, i, q.Amounts[i].Dec(), minimum.Dec())
		}
	}
	return nil
}

// percentOf returns part*100/whole truncated to 18 places.
func percentOf(part, whole *uint256.Int) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	scaled := new(big.Int).Mul(part.ToBig(), big.NewInt(100))
	scaled.Mul(scaled, fixedpoint.Precision.ToBig())
	scaled.Quo(scaled, whole.ToBig())
	return decimal.NewFromBigInt(scaled, -18)
}
