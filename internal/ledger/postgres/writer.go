package postgres

import (
	"context"

	"liquidityEngine/internal/model"
)

// writer is the ledger.Tx over an open pgx transaction.
type writer struct {
	reader
	q querier
}

func (w *writer) PutPool(ctx context.Context, p model.Pool) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_pools (
			id, name, pool_type, fee_tier_bps, status, lp_token_supply, tvl_usd, volume_24h, fees_24h,
			swap_count_24h, lp_count, mev_protection_enabled, ai_route_optimization, last_swap_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			pool_type = EXCLUDED.pool_type,
			fee_tier_bps = EXCLUDED.fee_tier_bps,
			status = EXCLUDED.status,
			lp_token_supply = EXCLUDED.lp_token_supply,
			tvl_usd = EXCLUDED.tvl_usd,
			volume_24h = EXCLUDED.volume_24h,
			fees_24h = EXCLUDED.fees_24h,
			swap_count_24h = EXCLUDED.swap_count_24h,
			lp_count = EXCLUDED.lp_count,
			mev_protection_enabled = EXCLUDED.mev_protection_enabled,
			ai_route_optimization = EXCLUDED.ai_route_optimization,
			last_swap_at = EXCLUDED.last_swap_at,
			updated_at = EXCLUDED.updated_at
	`,
		p.ID,
		p.Name,
		string(p.PoolType),
		int32(p.FeeTierBps),
		string(p.Status),
		numeric(p.LPTokenSupply),
		numeric(p.TVLUSD),
		numeric(p.Volume24h),
		numeric(p.Fees24h),
		int64(p.SwapCount24h),
		int64(p.LPCount),
		p.MEVProtectionEnabled,
		p.AIRouteOptimization,
		p.LastSwapAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (w *writer) PutPoolAsset(ctx context.Context, a model.PoolAsset) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_pool_assets (id, pool_id, asset_index, token_address, token_symbol, decimals, reserve, weight)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			token_symbol = EXCLUDED.token_symbol,
			decimals = EXCLUDED.decimals,
			reserve = EXCLUDED.reserve,
			weight = EXCLUDED.weight
	`, a.ID, a.PoolID, int32(a.AssetIndex), a.TokenAddress, a.TokenSymbol, int16(a.Decimals), numeric(a.Reserve), int32(a.Weight))
	return err
}

func (w *writer) PutPoolTick(ctx context.Context, t model.PoolTick) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_pool_ticks (pool_id, tick_index, liquidity_gross) VALUES ($1,$2,$3)
		ON CONFLICT (pool_id, tick_index) DO UPDATE SET liquidity_gross = EXCLUDED.liquidity_gross
	`, t.PoolID, t.TickIndex, numeric(t.LiquidityGross))
	return err
}

func (w *writer) PutPosition(ctx context.Context, p model.Position) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_positions (
			id, pool_id, owner_address, lp_token_amount, liquidity, tick_lower, tick_upper, amount0, amount1,
			value_usd, is_concentrated, status, created_at, updated_at, closed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			lp_token_amount = EXCLUDED.lp_token_amount,
			liquidity = EXCLUDED.liquidity,
			tick_lower = EXCLUDED.tick_lower,
			tick_upper = EXCLUDED.tick_upper,
			amount0 = EXCLUDED.amount0,
			amount1 = EXCLUDED.amount1,
			value_usd = EXCLUDED.value_usd,
			is_concentrated = EXCLUDED.is_concentrated,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			closed_at = EXCLUDED.closed_at
	`,
		p.ID, p.PoolID, p.OwnerAddress, numeric(p.LPTokenAmount), numeric(p.Liquidity), p.TickLower, p.TickUpper,
		numeric(p.Amount0), numeric(p.Amount1), numeric(p.ValueUSD), p.IsConcentrated, string(p.Status),
		p.CreatedAt, p.UpdatedAt, p.ClosedAt,
	)
	return err
}

func (w *writer) PutSwap(ctx context.Context, s model.Swap) error {
	route := s.RoutePath
	if route == nil {
		route = []string{}
	}
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_swaps (
			id, pool_id, tx_hash, trader_address, token_in_address, token_in_symbol, token_out_address, token_out_symbol,
			amount_in, amount_out, minimum_amount_out, fee_amount, price_impact_bps, execution_price, route_path,
			mev_protected, status, failure_reason, created_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (id) DO UPDATE SET
			amount_out = EXCLUDED.amount_out,
			fee_amount = EXCLUDED.fee_amount,
			price_impact_bps = EXCLUDED.price_impact_bps,
			execution_price = EXCLUDED.execution_price,
			mev_protected = EXCLUDED.mev_protected,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			completed_at = EXCLUDED.completed_at
	`,
		s.ID, s.PoolID, s.TxHash, s.TraderAddress, s.TokenInAddress, s.TokenInSymbol, s.TokenOutAddress, s.TokenOutSymbol,
		numeric(s.AmountIn), numeric(s.AmountOut), numeric(s.MinimumAmountOut), numeric(s.FeeAmount),
		int32(s.PriceImpactBps), s.ExecutionPrice, route, s.MEVProtected, string(s.Status), s.FailureReason,
		s.CreatedAt, s.CompletedAt,
	)
	return err
}

func (w *writer) PutCircuitBreaker(ctx context.Context, b model.CircuitBreaker) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_circuit_breakers (
			pool_id, status, cooldown_duration_minutes, cooldown_ends_at, last_triggered_at, last_reason,
			trigger_count_24h, trigger_count_all_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (pool_id) DO UPDATE SET
			status = EXCLUDED.status,
			cooldown_duration_minutes = EXCLUDED.cooldown_duration_minutes,
			cooldown_ends_at = EXCLUDED.cooldown_ends_at,
			last_triggered_at = EXCLUDED.last_triggered_at,
			last_reason = EXCLUDED.last_reason,
			trigger_count_24h = EXCLUDED.trigger_count_24h,
			trigger_count_all_time = EXCLUDED.trigger_count_all_time
	`, b.PoolID, string(b.Status), b.CooldownDurationMinutes, b.CooldownEndsAt, b.LastTriggeredAt, b.LastReason,
		b.TriggerCount24h, b.TriggerCountAllTime)
	return err
}

// AppendTwap fails on a duplicate index; observations are never rewritten.
func (w *writer) AppendTwap(ctx context.Context, o model.TwapObservation) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_twap_observations (pool_id, observation_index, block_timestamp, price0_cumulative_x128, price1_cumulative_x128)
		VALUES ($1,$2,$3,$4,$5)
	`, o.PoolID, int64(o.ObservationIndex), o.BlockTimestamp, numeric(o.Price0CumulativeX128), numeric(o.Price1CumulativeX128))
	return err
}

func (w *writer) PutCandle(ctx context.Context, c model.PriceCandle) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_price_candles (pool_id, interval, period_start, period_end, open, high, low, close, volume, trade_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (pool_id, interval, period_start) DO UPDATE SET
			period_end = EXCLUDED.period_end,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			trade_count = EXCLUDED.trade_count
	`, c.PoolID, c.Interval, c.PeriodStart, c.PeriodEnd, numeric(c.Open), numeric(c.High), numeric(c.Low), numeric(c.Close),
		numeric(c.Volume), int64(c.TradeCount))
	return err
}

func (w *writer) AppendMevEvent(ctx context.Context, e model.MevEvent) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_mev_events (
			id, pool_id, trader_address, event_type, severity, estimated_loss_usd, prevented_loss_usd,
			detection_method, ai_confidence, status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, e.ID, e.PoolID, e.TraderAddress, string(e.EventType), e.Severity, numeric(e.EstimatedLossUSD), numeric(e.PreventedLossUSD),
		e.DetectionMethod, e.AIConfidence, e.Status, e.CreatedAt)
	return err
}

func (w *writer) PutUserAnalytics(ctx context.Context, a model.UserAnalytics) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO amm_user_analytics (
			user_address, total_swaps, total_volume_usd, total_fee_paid_usd, total_liquidity_provided_usd,
			trader_tier, fee_discount_bps, first_trade_at, last_trade_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_address) DO UPDATE SET
			total_swaps = EXCLUDED.total_swaps,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_fee_paid_usd = EXCLUDED.total_fee_paid_usd,
			total_liquidity_provided_usd = EXCLUDED.total_liquidity_provided_usd,
			trader_tier = EXCLUDED.trader_tier,
			fee_discount_bps = EXCLUDED.fee_discount_bps,
			first_trade_at = EXCLUDED.first_trade_at,
			last_trade_at = EXCLUDED.last_trade_at
	`, a.UserAddress, int64(a.TotalSwaps), numeric(a.TotalVolumeUSD), numeric(a.TotalFeePaidUSD),
		numeric(a.TotalLiquidityProvidedUSD), a.TraderTier, int32(a.FeeDiscountBps), a.FirstTradeAt, a.LastTradeAt)
	return err
}

// numeric maps blank amount strings to zero.
func numeric(value string) string {
	if value == "" {
		return "0"
	}
	return value
}
