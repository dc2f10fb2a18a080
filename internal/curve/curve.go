// Package curve implements the pricing strategies of the supported pool types.
// Every strategy is a pure function over reserves; the swap fee is always
// deducted from the input before the curve math runs.
package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrUnsupportedPoolType   = errors.New("unsupported pool type")
)

// Tick is a concentrated-liquidity range with a 1e18-scaled liquidity share.
type Tick struct {
	Index     int32
	Liquidity *uint256.Int
}

// Input describes one swap leg against a pool.
type Input struct {
	AmountIn   *uint256.Int
	ReserveIn  *uint256.Int
	ReserveOut *uint256.Int
	FeeTierBps uint32
	WeightIn   uint32
	WeightOut  uint32
	Ticks      []Tick
}

// Output is the priced result of a swap leg.
type Output struct {
	AmountOut *uint256.Int
	Fee       *uint256.Int
}

// Strategy prices a swap for one curve family.
type Strategy interface {
	Quote(in Input) (Output, error)
}

var strategies = map[model.PoolType]Strategy{
	model.PoolTypeConstantProduct: ConstantProduct{},
	model.PoolTypeStandard:        ConstantProduct{},
	model.PoolTypeStable:          StableSwap{Amplification: DefaultAmplification},
	model.PoolTypeConcentrated:    Concentrated{},
	model.PoolTypeMultiAsset:      Weighted{},
	model.PoolTypeWeighted:        Weighted{},
}

// ForPoolType returns the strategy registered for a pool type.
func ForPoolType(poolType model.PoolType) (Strategy, error) {
	s, ok := strategies[poolType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPoolType, poolType)
	}
	return s, nil
}

// Supported reports whether a pool type has a pricing strategy.
func Supported(poolType model.PoolType) bool {
	_, ok := strategies[poolType]
	return ok
}

func validate(in Input) error {
	if in.AmountIn == nil || in.AmountIn.IsZero() {
		return fmt.Errorf("%w: amount in must be positive", fixedpoint.ErrInvalidAmount)
	}
	if in.ReserveIn == nil || in.ReserveOut == nil || in.ReserveIn.IsZero() || in.ReserveOut.IsZero() {
		return ErrInsufficientLiquidity
	}
	if in.FeeTierBps > fixedpoint.FeePrecision {
		return fmt.Errorf("%w: fee tier %d bps", fixedpoint.ErrInvalidAmount, in.FeeTierBps)
	}
	return nil
}

// splitFee returns (fee, amountIn - fee).
func splitFee(in Input) (*uint256.Int, *uint256.Int, error) {
	fee, err := fixedpoint.Fee(in.AmountIn, in.FeeTierBps)
	if err != nil {
		return nil, nil, err
	}
	afterFee, err := fixedpoint.Sub(in.AmountIn, fee)
	if err != nil {
		return nil, nil, err
	}
	return fee, afterFee, nil
}
