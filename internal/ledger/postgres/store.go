// Package postgres implements the ledger store on Postgres through pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/model"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides Postgres persistence for the ledger.
type Store struct {
	pool *pgxpool.Pool
	reader
}

var _ ledger.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, reader: reader{q: pool}}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate creates the ledger tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Update runs fn inside one database transaction.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&writer{reader: reader{q: tx}, q: tx})
	})
}

type reader struct {
	q querier
}

func wrapNoRows(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ledger.ErrNotFound)
	}
	return err
}

func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

const poolColumns = `id, name, pool_type, fee_tier_bps, status, lp_token_supply::text, tvl_usd::text,
	volume_24h::text, fees_24h::text, swap_count_24h, lp_count, mev_protection_enabled,
	ai_route_optimization, last_swap_at, created_at, updated_at`

func scanPool(row pgx.Row) (model.Pool, error) {
	var (
		p          model.Pool
		fee        int32
		swapCount  int64
		lpCount    int64
		poolType   string
		poolStatus string
	)
	err := row.Scan(&p.ID, &p.Name, &poolType, &fee, &poolStatus, &p.LPTokenSupply, &p.TVLUSD,
		&p.Volume24h, &p.Fees24h, &swapCount, &lpCount, &p.MEVProtectionEnabled,
		&p.AIRouteOptimization, &p.LastSwapAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Pool{}, err
	}
	p.PoolType = model.PoolType(poolType)
	p.Status = model.PoolStatus(poolStatus)
	p.FeeTierBps = uint32(fee)
	p.SwapCount24h = uint64(swapCount)
	p.LPCount = uint64(lpCount)
	return p, nil
}

func (r reader) GetPool(ctx context.Context, id string) (model.Pool, error) {
	p, err := scanPool(r.q.QueryRow(ctx, `SELECT `+poolColumns+` FROM amm_pools WHERE id=$1`, id))
	if err != nil {
		return model.Pool{}, wrapNoRows(err, "pool", id)
	}
	return p, nil
}

func (r reader) ListPools(ctx context.Context, limit int) ([]model.Pool, error) {
	rows, err := r.q.Query(ctx, `SELECT `+poolColumns+` FROM amm_pools ORDER BY created_at, id LIMIT $1`, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r reader) GetPoolAssets(ctx context.Context, poolID string) ([]model.PoolAsset, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, pool_id, asset_index, token_address, token_symbol, decimals, reserve::text, weight
		FROM amm_pool_assets WHERE pool_id=$1 ORDER BY asset_index
	`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PoolAsset
	for rows.Next() {
		var (
			a        model.PoolAsset
			index    int32
			decimals int16
			weight   int32
		)
		if err := rows.Scan(&a.ID, &a.PoolID, &index, &a.TokenAddress, &a.TokenSymbol, &decimals, &a.Reserve, &weight); err != nil {
			return nil, err
		}
		a.AssetIndex = int(index)
		a.Decimals = uint8(decimals)
		a.Weight = uint32(weight)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r reader) GetPoolTicks(ctx context.Context, poolID string) ([]model.PoolTick, error) {
	rows, err := r.q.Query(ctx, `
		SELECT pool_id, tick_index, liquidity_gross::text FROM amm_pool_ticks WHERE pool_id=$1 ORDER BY tick_index
	`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PoolTick
	for rows.Next() {
		var t model.PoolTick
		if err := rows.Scan(&t.PoolID, &t.TickIndex, &t.LiquidityGross); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const positionColumns = `id, pool_id, owner_address, lp_token_amount::text, liquidity::text, tick_lower, tick_upper,
	amount0::text, amount1::text, value_usd::text, is_concentrated, status, created_at, updated_at, closed_at`

func scanPosition(row pgx.Row) (model.Position, error) {
	var (
		p      model.Position
		status string
	)
	err := row.Scan(&p.ID, &p.PoolID, &p.OwnerAddress, &p.LPTokenAmount, &p.Liquidity, &p.TickLower, &p.TickUpper,
		&p.Amount0, &p.Amount1, &p.ValueUSD, &p.IsConcentrated, &status, &p.CreatedAt, &p.UpdatedAt, &p.ClosedAt)
	p.Status = model.PositionStatus(status)
	return p, err
}

func (r reader) GetPosition(ctx context.Context, id string) (model.Position, error) {
	p, err := scanPosition(r.q.QueryRow(ctx, `SELECT `+positionColumns+` FROM amm_positions WHERE id=$1`, id))
	if err != nil {
		return model.Position{}, wrapNoRows(err, "position", id)
	}
	return p, nil
}

func (r reader) FindPosition(ctx context.Context, poolID, owner string) (model.Position, error) {
	p, err := scanPosition(r.q.QueryRow(ctx, `
		SELECT `+positionColumns+` FROM amm_positions WHERE pool_id=$1 AND lower(owner_address)=lower($2)
	`, poolID, owner))
	if err != nil {
		return model.Position{}, wrapNoRows(err, "position", poolID+"/"+owner)
	}
	return p, nil
}

func (r reader) ListPositionsByOwner(ctx context.Context, owner string) ([]model.Position, error) {
	return r.positions(ctx, `
		SELECT `+positionColumns+` FROM amm_positions WHERE lower(owner_address)=lower($1) ORDER BY created_at, id
	`, owner)
}

func (r reader) ListPositionsByPool(ctx context.Context, poolID string) ([]model.Position, error) {
	return r.positions(ctx, `
		SELECT `+positionColumns+` FROM amm_positions WHERE pool_id=$1 ORDER BY created_at, id
	`, poolID)
}

func (r reader) positions(ctx context.Context, sql string, args ...any) ([]model.Position, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const swapColumns = `id, pool_id, tx_hash, trader_address, token_in_address, token_in_symbol, token_out_address,
	token_out_symbol, amount_in::text, amount_out::text, minimum_amount_out::text, fee_amount::text,
	price_impact_bps, execution_price, route_path, mev_protected, status, failure_reason, created_at, completed_at`

func scanSwap(row pgx.Row) (model.Swap, error) {
	var (
		s      model.Swap
		impact int32
		status string
	)
	err := row.Scan(&s.ID, &s.PoolID, &s.TxHash, &s.TraderAddress, &s.TokenInAddress, &s.TokenInSymbol, &s.TokenOutAddress,
		&s.TokenOutSymbol, &s.AmountIn, &s.AmountOut, &s.MinimumAmountOut, &s.FeeAmount,
		&impact, &s.ExecutionPrice, &s.RoutePath, &s.MEVProtected, &status, &s.FailureReason, &s.CreatedAt, &s.CompletedAt)
	s.PriceImpactBps = uint32(impact)
	s.Status = model.SwapStatus(status)
	return s, err
}

func (r reader) GetSwap(ctx context.Context, id string) (model.Swap, error) {
	s, err := scanSwap(r.q.QueryRow(ctx, `SELECT `+swapColumns+` FROM amm_swaps WHERE id=$1`, id))
	if err != nil {
		return model.Swap{}, wrapNoRows(err, "swap", id)
	}
	return s, nil
}

func (r reader) RecentSwaps(ctx context.Context, poolID string, limit int) ([]model.Swap, error) {
	return r.swaps(ctx, `
		SELECT `+swapColumns+` FROM amm_swaps WHERE pool_id=$1 ORDER BY seq DESC LIMIT $2
	`, poolID, limitArg(limit))
}

func (r reader) SwapsByTrader(ctx context.Context, trader string, limit int) ([]model.Swap, error) {
	return r.swaps(ctx, `
		SELECT `+swapColumns+` FROM amm_swaps WHERE lower(trader_address)=lower($1) ORDER BY seq DESC LIMIT $2
	`, trader, limitArg(limit))
}

func (r reader) LatestSwaps(ctx context.Context, limit int) ([]model.Swap, error) {
	return r.swaps(ctx, `SELECT `+swapColumns+` FROM amm_swaps ORDER BY seq DESC LIMIT $1`, limitArg(limit))
}

func (r reader) swaps(ctx context.Context, sql string, args ...any) ([]model.Swap, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r reader) GetCircuitBreaker(ctx context.Context, poolID string) (model.CircuitBreaker, error) {
	var (
		b      model.CircuitBreaker
		status string
	)
	err := r.q.QueryRow(ctx, `
		SELECT pool_id, status, cooldown_duration_minutes, cooldown_ends_at, last_triggered_at, last_reason,
			trigger_count_24h, trigger_count_all_time
		FROM amm_circuit_breakers WHERE pool_id=$1
	`, poolID).Scan(&b.PoolID, &status, &b.CooldownDurationMinutes, &b.CooldownEndsAt, &b.LastTriggeredAt,
		&b.LastReason, &b.TriggerCount24h, &b.TriggerCountAllTime)
	if err != nil {
		return model.CircuitBreaker{}, wrapNoRows(err, "circuit breaker", poolID)
	}
	b.Status = model.BreakerStatus(status)
	return b, nil
}

const twapColumns = `pool_id, observation_index, block_timestamp, price0_cumulative_x128::text, price1_cumulative_x128::text`

func scanTwap(row pgx.Row) (model.TwapObservation, error) {
	var (
		o     model.TwapObservation
		index int64
	)
	err := row.Scan(&o.PoolID, &index, &o.BlockTimestamp, &o.Price0CumulativeX128, &o.Price1CumulativeX128)
	o.ObservationIndex = uint64(index)
	return o, err
}

func (r reader) LatestTwap(ctx context.Context, poolID string) (model.TwapObservation, error) {
	o, err := scanTwap(r.q.QueryRow(ctx, `
		SELECT `+twapColumns+` FROM amm_twap_observations WHERE pool_id=$1 ORDER BY observation_index DESC LIMIT 1
	`, poolID))
	if err != nil {
		return model.TwapObservation{}, wrapNoRows(err, "twap observation", poolID)
	}
	return o, nil
}

func (r reader) ListTwap(ctx context.Context, poolID string, limit int) ([]model.TwapObservation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+twapColumns+` FROM amm_twap_observations WHERE pool_id=$1 ORDER BY observation_index DESC LIMIT $2
	`, poolID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TwapObservation
	for rows.Next() {
		o, err := scanTwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const candleColumns = `pool_id, interval, period_start, period_end, open::text, high::text, low::text, close::text,
	volume::text, trade_count`

func scanCandle(row pgx.Row) (model.PriceCandle, error) {
	var (
		c     model.PriceCandle
		count int64
	)
	err := row.Scan(&c.PoolID, &c.Interval, &c.PeriodStart, &c.PeriodEnd, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &count)
	c.TradeCount = uint64(count)
	c.PeriodStart = c.PeriodStart.UTC()
	c.PeriodEnd = c.PeriodEnd.UTC()
	return c, err
}

func (r reader) GetCandle(ctx context.Context, poolID, interval string, start time.Time) (model.PriceCandle, error) {
	c, err := scanCandle(r.q.QueryRow(ctx, `
		SELECT `+candleColumns+` FROM amm_price_candles WHERE pool_id=$1 AND interval=$2 AND period_start=$3
	`, poolID, interval, start))
	if err != nil {
		return model.PriceCandle{}, wrapNoRows(err, "price candle", poolID)
	}
	return c, nil
}

func (r reader) ListCandles(ctx context.Context, poolID, interval string, limit int) ([]model.PriceCandle, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+candleColumns+` FROM amm_price_candles WHERE pool_id=$1 AND interval=$2
		ORDER BY period_start DESC LIMIT $3
	`, poolID, interval, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PriceCandle
	for rows.Next() {
		c, err := scanCandle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r reader) ListMevEvents(ctx context.Context, poolID string, limit int) ([]model.MevEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, pool_id, trader_address, event_type, severity, estimated_loss_usd::text, prevented_loss_usd::text,
			detection_method, ai_confidence, status, created_at
		FROM amm_mev_events WHERE ($1 = '' OR pool_id=$1) ORDER BY seq DESC LIMIT $2
	`, poolID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MevEvent
	for rows.Next() {
		var (
			e         model.MevEvent
			eventType string
		)
		if err := rows.Scan(&e.ID, &e.PoolID, &e.TraderAddress, &eventType, &e.Severity, &e.EstimatedLossUSD,
			&e.PreventedLossUSD, &e.DetectionMethod, &e.AIConfidence, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = model.MevEventType(eventType)
		out = append(out, e)
	}
	return out, rows.Err()
}

const analyticsColumns = `user_address, total_swaps, total_volume_usd::text, total_fee_paid_usd::text,
	total_liquidity_provided_usd::text, trader_tier, fee_discount_bps, first_trade_at, last_trade_at`

func scanAnalytics(row pgx.Row) (model.UserAnalytics, error) {
	var (
		a        model.UserAnalytics
		swaps    int64
		discount int32
	)
	err := row.Scan(&a.UserAddress, &swaps, &a.TotalVolumeUSD, &a.TotalFeePaidUSD, &a.TotalLiquidityProvidedUSD,
		&a.TraderTier, &discount, &a.FirstTradeAt, &a.LastTradeAt)
	a.TotalSwaps = uint64(swaps)
	a.FeeDiscountBps = uint32(discount)
	return a, err
}

func (r reader) GetUserAnalytics(ctx context.Context, address string) (model.UserAnalytics, error) {
	a, err := scanAnalytics(r.q.QueryRow(ctx, `
		SELECT `+analyticsColumns+` FROM amm_user_analytics WHERE lower(user_address)=lower($1)
	`, address))
	if err != nil {
		return model.UserAnalytics{}, wrapNoRows(err, "user analytics", address)
	}
	return a, nil
}

func (r reader) TopTraders(ctx context.Context, limit int) ([]model.UserAnalytics, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+analyticsColumns+` FROM amm_user_analytics ORDER BY total_volume_usd DESC, user_address LIMIT $1
	`, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserAnalytics
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
