// Package mev flags sandwich and frontrun patterns from recent pool swaps.
// Findings are advisory; nothing here blocks a swap.
package mev

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/model"
)

const (
	DetectionMethod = "ai_pattern"
	StatusDetected  = "detected"

	sandwichConfidence = 70
	frontrunConfidence = 50
	sandwichMinPeers   = 2
	frontrunMultiple   = 10

	defaultWindow   = 5 * time.Second
	defaultLookback = 10
)

var (
	sandwichImpact = decimal.RequireFromString("0.02")
	frontrunShare  = decimal.RequireFromString("0.5")
)

// History returns the newest swaps of a pool, newest first.
type History interface {
	RecentSwaps(ctx context.Context, poolID string, limit int) ([]model.Swap, error)
}

type Config struct {
	Window   time.Duration
	Lookback int
}

// Attempt is the swap under inspection. PriceImpact is a fraction.
type Attempt struct {
	PoolID      string
	Trader      string
	AmountIn    *uint256.Int
	Decimals    uint8
	PriceImpact decimal.Decimal
	Now         time.Time
}

type Detector struct {
	history History
	cfg     Config
	logger  *zap.Logger
}

func NewDetector(cfg Config, history History, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultLookback
	}
	return &Detector{history: history, cfg: cfg, logger: logger}
}

// Inspect returns at most one finding for the attempt, or nil. The sandwich
// rule is evaluated before the frontrun rule.
func (d *Detector) Inspect(ctx context.Context, attempt Attempt) (*model.MevEvent, error) {
	if attempt.AmountIn == nil {
		return nil, fmt.Errorf("%w: nil amount", fixedpoint.ErrInvalidAmount)
	}
	recent, err := d.history.RecentSwaps(ctx, attempt.PoolID, d.cfg.Lookback)
	if err != nil {
		return nil, fmt.Errorf("recent swaps %s: %w", attempt.PoolID, err)
	}

	value := fixedpoint.Value(attempt.AmountIn, attempt.Decimals)

	if attempt.PriceImpact.GreaterThan(sandwichImpact) && d.sandwichPeers(recent, attempt) >= sandwichMinPeers {
		loss := value.Mul(attempt.PriceImpact)
		return d.finding(attempt, model.MevSandwichDetected, sandwichConfidence, loss), nil
	}

	threshold, err := fixedpoint.Mul(attempt.AmountIn, uint256.NewInt(frontrunMultiple))
	if err != nil {
		// no stored amount can exceed amountIn*10
		return nil, nil
	}
	for _, swap := range recent {
		amount, err := fixedpoint.ParseAmount(swap.AmountIn)
		if err != nil {
			d.logger.Debug("skip malformed swap amount", zap.String("swap", swap.ID), zap.Error(err))
			continue
		}
		if amount.Gt(threshold) {
			loss := value.Mul(attempt.PriceImpact).Mul(frontrunShare)
			return d.finding(attempt, model.MevFrontrunDetected, frontrunConfidence, loss), nil
		}
	}
	return nil, nil
}

// sandwichPeers counts recent swaps inside the window from someone other
// than the trader of the newest swap.
func (d *Detector) sandwichPeers(recent []model.Swap, attempt Attempt) int {
	if len(recent) == 0 {
		return 0
	}
	newest := recent[0].TraderAddress
	peers := 0
	for _, swap := range recent {
		gap := swap.CreatedAt.Sub(attempt.Now)
		if gap < 0 {
			gap = -gap
		}
		if gap < d.cfg.Window && !model.SameAddress(swap.TraderAddress, newest) {
			peers++
		}
	}
	return peers
}

func (d *Detector) finding(attempt Attempt, kind model.MevEventType, confidence int, loss decimal.Decimal) *model.MevEvent {
	return &model.MevEvent{
		ID:               uuid.NewString(),
		PoolID:           attempt.PoolID,
		TraderAddress:    attempt.Trader,
		EventType:        kind,
		Severity:         Severity(confidence),
		EstimatedLossUSD: loss.StringFixed(fixedpoint.USDScale),
		PreventedLossUSD: decimal.Zero.StringFixed(fixedpoint.USDScale),
		DetectionMethod:  DetectionMethod,
		AIConfidence:     confidence,
		Status:           StatusDetected,
		CreatedAt:        attempt.Now.UTC(),
	}
}

// Severity maps a confidence score to low, medium or high.
func Severity(confidence int) string {
	switch {
	case confidence > 80:
		return "high"
	case confidence > 50:
		return "medium"
	default:
		return "low"
	}
}
