// Package engine prices and executes swaps, manages liquidity positions and
// keeps the per-pool oracle, analytics and audit records in step with the
// ledger store.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"liquidityEngine/internal/breaker"
	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/mev"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/storage"
)

const (
	defaultSlippageBps      = 50
	defaultRouteConcurrency = 8
	defaultRouteScanLimit   = 100
	maxPriceImpactBps       = 1000
	estimatedSwapGas        = 150000
	defaultPredictionTTL    = time.Minute
	predictionCacheSize     = 256
)

// Config controls engine behavior.
type Config struct {
	// DefaultSlippageBps applies to quotes that carry no tolerance. Nil
	// means 50 bps; an explicit zero quotes without tolerance.
	DefaultSlippageBps *uint32
	RouteConcurrency   int
	RouteScanLimit     int
	// PredictionTTL bounds how long a price prediction is served from cache.
	PredictionTTL time.Duration
	Breaker            breaker.Config
	MEV                mev.Config
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Engine is the AMM exchange engine. Mutations of one pool are serialized
// in-process; reads never take the pool lock.
type Engine struct {
	cfg      Config
	slippage uint32
	store    ledger.Store
	breaker  *breaker.Breaker
	detector *mev.Detector
	journal  storage.Journal
	logger   *zap.Logger

	predictions *lru.Cache[string, model.PricePrediction]
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*semaphore.Weighted
}

func New(cfg Config, store ledger.Store, journal storage.Journal, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if journal == nil {
		journal = storage.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	slippage := uint32(defaultSlippageBps)
	if cfg.DefaultSlippageBps != nil {
		slippage = *cfg.DefaultSlippageBps
	}
	if slippage > fixedpoint.FeePrecision {
		return nil, fmt.Errorf("%w: default slippage %d bps", ErrInvalidAmount, slippage)
	}
	if cfg.RouteConcurrency <= 0 {
		cfg.RouteConcurrency = defaultRouteConcurrency
	}
	if cfg.RouteScanLimit <= 0 {
		cfg.RouteScanLimit = defaultRouteScanLimit
	}
	if cfg.PredictionTTL <= 0 {
		cfg.PredictionTTL = defaultPredictionTTL
	}

	cb, err := breaker.New(cfg.Breaker, ledger.BreakerStore{Store: store}, logger.Named("breaker"), cfg.Clock)
	if err != nil {
		return nil, err
	}
	predictions, err := lru.New[string, model.PricePrediction](predictionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("prediction cache: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		slippage: slippage,
		store:    store,
		breaker:  cb,
		detector: mev.NewDetector(cfg.MEV, store, logger.Named("mev")),
		journal:  journal,
		logger:   logger,

		predictions: predictions,
		now:      cfg.Clock,
		locks:    make(map[string]*semaphore.Weighted),
	}, nil
}

// lockPool blocks until the caller is the only writer of poolID.
func (e *Engine) lockPool(ctx context.Context, poolID string) (func(), error) {
	e.locksMu.Lock()
	sem, ok := e.locks[poolID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[poolID] = sem
	}
	e.locksMu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("lock pool %s: %w", poolID, err)
	}
	return func() { sem.Release(1) }, nil
}

func (e *Engine) record(entries ...storage.Entry) {
	if err := e.journal.Append(entries); err != nil {
		e.logger.Warn("append audit journal", zap.Error(err))
	}
}

// normalizeAddress validates a hex address and returns its checksum form.
func normalizeAddress(kind, address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidAddress, kind, address)
	}
	return common.HexToAddress(address).Hex(), nil
}
