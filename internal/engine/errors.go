package engine

import (
	"errors"
	"fmt"

	"liquidityEngine/internal/breaker"
	"liquidityEngine/internal/curve"
	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/liquidity"
)

var (
	ErrPoolNotFound        = errors.New("pool not found")
	ErrPositionNotFound    = errors.New("position not found")
	ErrSwapNotFound        = errors.New("swap not found")
	ErrInvalidTokenPair    = errors.New("invalid token pair")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrDeadlineExpired     = errors.New("transaction deadline expired")
	ErrSlippageExceeded    = errors.New("slippage tolerance exceeded")
	ErrPoolInactive        = errors.New("pool is not active")
	ErrNoRoute             = errors.New("no valid swap route found")
	ErrInvalidPoolConfig   = errors.New("invalid pool configuration")
	ErrUnsupportedPoolType = curve.ErrUnsupportedPoolType

	ErrInvalidAmount         = fixedpoint.ErrInvalidAmount
	ErrOverflow              = fixedpoint.ErrOverflow
	ErrInsufficientLiquidity = curve.ErrInsufficientLiquidity
	ErrCircuitBreakerOpen    = breaker.ErrCircuitBreakerOpen
	ErrMinimumLpNotMet       = liquidity.ErrMinimumLpNotMet
	ErrMinimumAmountNotMet   = liquidity.ErrMinimumAmountNotMet
)

// notFound maps a ledger miss onto the engine sentinel for that record.
func notFound(err error, sentinel error, id string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}
