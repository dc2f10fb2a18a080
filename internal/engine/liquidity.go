package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityEngine/internal/fixedpoint"
	"liquidityEngine/internal/ledger"
	"liquidityEngine/internal/liquidity"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/storage"
)

// TokenAmount is a base-unit amount of one pool token.
type TokenAmount struct {
	TokenAddress string `json:"token_address"`
	Amount       string `json:"amount"`
}

type LiquidityQuote struct {
	PoolID      string        `json:"pool_id"`
	LPTokens    string        `json:"lp_tokens"`
	Burned      string        `json:"burned"`
	Amounts     []TokenAmount `json:"amounts"`
	ShareOfPool string        `json:"share_of_pool"`
	ValueUSD    string        `json:"value_usd"`
}

type RemoveLiquidityQuote struct {
	PositionID        string        `json:"position_id"`
	PoolID            string        `json:"pool_id"`
	LPTokensBurned    string        `json:"lp_tokens_burned"`
	LPTokensRemaining string        `json:"lp_tokens_remaining"`
	Amounts           []TokenAmount `json:"amounts"`
	ShareRedeemed     string        `json:"share_redeemed"`
	ValueUSD          string        `json:"value_usd"`
}

type AddLiquidityRequest struct {
	PoolID   string
	Provider string
	Amounts  []TokenAmount
	// MinLPTokens is optional.
	MinLPTokens string
	// Tick bounds apply to concentrated pools; nil means full range.
	TickLower *int32
	TickUpper *int32
}

type RemoveLiquidityRequest struct {
	PositionID string
	Owner      string
	Percentage float64
	// MinAmounts holds optional per-token payout floors.
	MinAmounts []TokenAmount
}

type poolState struct {
	pool     model.PoolWithAssets
	supply   *uint256.Int
	reserves []*uint256.Int
}

func readPoolState(pool model.PoolWithAssets) (poolState, error) {
	supply, err := fixedpoint.ParseAmount(pool.Pool.LPTokenSupply)
	if err != nil {
		return poolState{}, fmt.Errorf("lp supply of %s: %w", pool.Pool.ID, err)
	}
	reserves := make([]*uint256.Int, len(pool.Assets))
	for i, asset := range pool.Assets {
		if reserves[i], err = fixedpoint.ParseAmount(asset.Reserve); err != nil {
			return poolState{}, fmt.Errorf("reserve of %s: %w", asset.TokenAddress, err)
		}
	}
	return poolState{pool: pool, supply: supply, reserves: reserves}, nil
}

// alignAmounts maps token amounts onto the pool's asset order.
func alignAmounts(pool model.PoolWithAssets, amounts []TokenAmount) ([]*uint256.Int, error) {
	aligned := make([]*uint256.Int, len(pool.Assets))
	for _, ta := range amounts {
		idx := -1
		for i, asset := range pool.Assets {
			if model.SameAddress(asset.TokenAddress, ta.TokenAddress) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: token %s not in pool %s", ErrInvalidTokenPair, ta.TokenAddress, pool.Pool.ID)
		}
		if aligned[idx] != nil {
			return nil, fmt.Errorf("%w: token %s listed twice", ErrInvalidTokenPair, ta.TokenAddress)
		}
		amount, err := fixedpoint.ParseAmount(ta.Amount)
		if err != nil {
			return nil, err
		}
		aligned[idx] = amount
	}
	return aligned, nil
}

func tokenAmounts(assets []model.PoolAsset, amounts []*uint256.Int) []TokenAmount {
	out := make([]TokenAmount, len(assets))
	for i, asset := range assets {
		out[i] = TokenAmount{TokenAddress: asset.TokenAddress, Amount: amounts[i].Dec()}
	}
	return out
}

func amountsValue(assets []model.PoolAsset, amounts []*uint256.Int) decimal.Decimal {
	total := decimal.Zero
	for i, asset := range assets {
		total = total.Add(fixedpoint.Value(amounts[i], asset.Decimals))
	}
	return total
}

// CalculateAddLiquidityQuote prices a deposit without writing anything.
func (e *Engine) CalculateAddLiquidityQuote(ctx context.Context, poolID string, amounts []TokenAmount) (LiquidityQuote, error) {
	pool, err := loadPool(ctx, e.store, poolID)
	if err != nil {
		return LiquidityQuote{}, err
	}
	_, quote, err := quoteDeposit(pool, amounts)
	return quote, err
}

func quoteDeposit(pool model.PoolWithAssets, amounts []TokenAmount) (liquidity.AddQuote, LiquidityQuote, error) {
	state, err := readPoolState(pool)
	if err != nil {
		return liquidity.AddQuote{}, LiquidityQuote{}, err
	}
	aligned, err := alignAmounts(pool, amounts)
	if err != nil {
		return liquidity.AddQuote{}, LiquidityQuote{}, err
	}
	q, err := liquidity.QuoteAdd(state.supply, state.reserves, aligned)
	if err != nil {
		return liquidity.AddQuote{}, LiquidityQuote{}, fmt.Errorf("quote deposit into %s: %w", pool.Pool.ID, err)
	}
	return q, LiquidityQuote{
		PoolID:      pool.Pool.ID,
		LPTokens:    q.LPTokens.Dec(),
		Burned:      q.Burned.Dec(),
		Amounts:     tokenAmounts(pool.Assets, q.Amounts),
		ShareOfPool: q.ShareOfPool.String(),
		ValueUSD:    amountsValue(pool.Assets, q.Amounts).StringFixed(fixedpoint.USDScale),
	}, nil
}

// AddLiquidity credits a deposit to the pool and to the provider's position
// in that pool, creating the position on first deposit.
func (e *Engine) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (model.Position, LiquidityQuote, error) {
	provider, err := normalizeAddress("provider", req.Provider)
	if err != nil {
		return model.Position{}, LiquidityQuote{}, err
	}
	minLP, err := fixedpoint.ParseAmount(req.MinLPTokens)
	if err != nil {
		return model.Position{}, LiquidityQuote{}, err
	}

	release, err := e.lockPool(ctx, req.PoolID)
	if err != nil {
		return model.Position{}, LiquidityQuote{}, err
	}
	defer release()

	if err := e.breaker.Check(ctx, req.PoolID); err != nil {
		return model.Position{}, LiquidityQuote{}, err
	}

	now := e.now().UTC()
	var (
		position model.Position
		quote    LiquidityQuote
	)
	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		pool, err := loadPool(ctx, tx, req.PoolID)
		if err != nil {
			return err
		}
		if pool.Pool.Status != model.PoolStatusActive {
			return fmt.Errorf("%w: pool %s is %s", ErrPoolInactive, pool.Pool.ID, pool.Pool.Status)
		}
		q, view, err := quoteDeposit(pool, req.Amounts)
		if err != nil {
			return err
		}
		if err := q.Check(minLP); err != nil {
			return err
		}
		quote = view

		minted, err := fixedpoint.Add(q.LPTokens, q.Burned)
		if err != nil {
			return err
		}
		state, err := readPoolState(pool)
		if err != nil {
			return err
		}
		for i := range pool.Assets {
			if state.reserves[i], err = fixedpoint.Add(state.reserves[i], q.Amounts[i]); err != nil {
				return fmt.Errorf("credit reserve %d: %w", i, err)
			}
		}
		if state.supply, err = fixedpoint.Add(state.supply, minted); err != nil {
			return fmt.Errorf("lp supply: %w", err)
		}

		position, err = tx.FindPosition(ctx, pool.Pool.ID, provider)
		reopened := false
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			position = newPosition(pool.Pool, provider, now)
			reopened = true
		case err != nil:
			return fmt.Errorf("load position: %w", err)
		case position.Status == model.PositionStatusWithdrawn:
			position.Status = model.PositionStatusActive
			position.ClosedAt = nil
			reopened = true
		}
		if pool.Pool.PoolType == model.PoolTypeConcentrated {
			if err := setTickRange(&position, req.TickLower, req.TickUpper); err != nil {
				return err
			}
		}
		shares, err := fixedpoint.ParseAmount(position.LPTokenAmount)
		if err != nil {
			return err
		}
		if shares, err = fixedpoint.Add(shares, q.LPTokens); err != nil {
			return err
		}
		if reopened {
			state.pool.Pool.LPCount++
		}

		if err := commitPoolState(ctx, tx, &state, now); err != nil {
			return err
		}
		fillPosition(&position, state, shares, now)
		if err := tx.PutPosition(ctx, position); err != nil {
			return fmt.Errorf("put position: %w", err)
		}
		value := amountsValue(pool.Assets, q.Amounts)
		if err := recordLiquidity(ctx, tx, provider, value); err != nil {
			return fmt.Errorf("update analytics: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Position{}, LiquidityQuote{}, fmt.Errorf("add liquidity to %s: %w", req.PoolID, err)
	}

	e.record(storage.Entry{Kind: storage.EntryLiquidityAdded, PoolID: req.PoolID, At: now, Position: &position})
	e.logger.Info("liquidity added",
		zap.String("pool", req.PoolID),
		zap.String("position", position.ID),
		zap.String("provider", provider),
		zap.String("lp_tokens", quote.LPTokens),
	)
	return position, quote, nil
}

func newPosition(pool model.Pool, owner string, now time.Time) model.Position {
	return model.Position{
		ID:             uuid.NewString(),
		PoolID:         pool.ID,
		OwnerAddress:   owner,
		LPTokenAmount:  "0",
		Liquidity:      "0",
		TickLower:      model.MinTick,
		TickUpper:      model.MaxTick,
		IsConcentrated: pool.PoolType == model.PoolTypeConcentrated,
		Status:         model.PositionStatusActive,
		CreatedAt:      now,
	}
}

func setTickRange(position *model.Position, lower, upper *int32) error {
	if lower != nil {
		position.TickLower = *lower
	}
	if upper != nil {
		position.TickUpper = *upper
	}
	if position.TickLower < model.MinTick || position.TickUpper > model.MaxTick || position.TickLower >= position.TickUpper {
		return fmt.Errorf("%w: tick range [%d, %d]", ErrInvalidAmount, position.TickLower, position.TickUpper)
	}
	return nil
}

// commitPoolState writes reserves, supply and TVL back to the ledger.
func commitPoolState(ctx context.Context, tx ledger.Tx, state *poolState, now time.Time) error {
	for i := range state.pool.Assets {
		state.pool.Assets[i].Reserve = state.reserves[i].Dec()
		if err := tx.PutPoolAsset(ctx, state.pool.Assets[i]); err != nil {
			return fmt.Errorf("put pool asset %d: %w", i, err)
		}
	}
	tvl, err := poolTVL(state.pool.Assets)
	if err != nil {
		return err
	}
	state.pool.Pool.LPTokenSupply = state.supply.Dec()
	state.pool.Pool.TVLUSD = tvl.StringFixed(fixedpoint.USDScale)
	state.pool.Pool.UpdatedAt = now
	if err := tx.PutPool(ctx, state.pool.Pool); err != nil {
		return fmt.Errorf("put pool: %w", err)
	}
	return nil
}

// fillPosition derives the position's underlying amounts and value from
// its share of the updated pool.
func fillPosition(position *model.Position, state poolState, shares *uint256.Int, now time.Time) {
	position.LPTokenAmount = shares.Dec()
	position.Liquidity = shares.Dec()
	position.UpdatedAt = now

	underlying := make([]*uint256.Int, len(state.reserves))
	for i, reserve := range state.reserves {
		underlying[i] = fixedpoint.Zero()
		if !state.supply.IsZero() {
			if share, err := fixedpoint.MulDiv(reserve, shares, state.supply); err == nil {
				underlying[i] = share
			}
		}
	}
	position.Amount0 = underlying[0].Dec()
	position.Amount1 = "0"
	if len(underlying) > 1 {
		position.Amount1 = underlying[1].Dec()
	}
	position.ValueUSD = amountsValue(state.pool.Assets, underlying).StringFixed(fixedpoint.USDScale)
}

// CalculateRemoveLiquidityQuote prices withdrawing percentage of a position.
func (e *Engine) CalculateRemoveLiquidityQuote(ctx context.Context, positionID string, percentage float64) (RemoveLiquidityQuote, error) {
	position, err := e.GetPosition(ctx, positionID)
	if err != nil {
		return RemoveLiquidityQuote{}, err
	}
	pool, err := loadPool(ctx, e.store, position.PoolID)
	if err != nil {
		return RemoveLiquidityQuote{}, err
	}
	_, _, quote, err := quoteWithdrawal(pool, position, percentage)
	return quote, err
}

func quoteWithdrawal(pool model.PoolWithAssets, position model.Position, percentage float64) (poolState, liquidity.RemoveQuote, RemoveLiquidityQuote, error) {
	state, err := readPoolState(pool)
	if err != nil {
		return poolState{}, liquidity.RemoveQuote{}, RemoveLiquidityQuote{}, err
	}
	shares, err := fixedpoint.ParseAmount(position.LPTokenAmount)
	if err != nil {
		return poolState{}, liquidity.RemoveQuote{}, RemoveLiquidityQuote{}, err
	}
	q, err := liquidity.QuoteRemove(shares, state.supply, state.reserves, percentage)
	if err != nil {
		return poolState{}, liquidity.RemoveQuote{}, RemoveLiquidityQuote{}, fmt.Errorf("quote withdrawal of %s: %w", position.ID, err)
	}
	return state, q, RemoveLiquidityQuote{
		PositionID:        position.ID,
		PoolID:            pool.Pool.ID,
		LPTokensBurned:    q.Burn.Dec(),
		LPTokensRemaining: q.Remaining.Dec(),
		Amounts:           tokenAmounts(pool.Assets, q.Amounts),
		ShareRedeemed:     q.ShareRedeemed.String(),
		ValueUSD:          amountsValue(pool.Assets, q.Amounts).StringFixed(fixedpoint.USDScale),
	}, nil
}

// RemoveLiquidity pays out a share of a position. Withdrawals are allowed
// from paused and halted pools but not while the breaker is open.
func (e *Engine) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (model.Position, RemoveLiquidityQuote, error) {
	stored, err := e.GetPosition(ctx, req.PositionID)
	if err != nil {
		return model.Position{}, RemoveLiquidityQuote{}, err
	}
	if req.Owner != "" {
		owner, err := normalizeAddress("owner", req.Owner)
		if err != nil {
			return model.Position{}, RemoveLiquidityQuote{}, err
		}
		if !model.SameAddress(owner, stored.OwnerAddress) {
			return model.Position{}, RemoveLiquidityQuote{}, fmt.Errorf("%w: %s is not owned by %s", ErrPositionNotFound, req.PositionID, owner)
		}
	}
	poolID := stored.PoolID

	release, err := e.lockPool(ctx, poolID)
	if err != nil {
		return model.Position{}, RemoveLiquidityQuote{}, err
	}
	defer release()

	if err := e.breaker.Check(ctx, poolID); err != nil {
		return model.Position{}, RemoveLiquidityQuote{}, err
	}

	now := e.now().UTC()
	var (
		position model.Position
		quote    RemoveLiquidityQuote
	)
	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		current, err := tx.GetPosition(ctx, req.PositionID)
		if err != nil {
			return notFound(err, ErrPositionNotFound, req.PositionID)
		}
		position = current
		if position.Status != model.PositionStatusActive {
			return fmt.Errorf("%w: position %s is %s", ErrInvalidAmount, position.ID, position.Status)
		}
		pool, err := loadPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		state, q, view, err := quoteWithdrawal(pool, position, req.Percentage)
		if err != nil {
			return err
		}
		mins, err := alignAmounts(pool, req.MinAmounts)
		if err != nil {
			return err
		}
		if err := q.Check(mins); err != nil {
			return err
		}
		quote = view

		for i := range state.reserves {
			if state.reserves[i], err = fixedpoint.Sub(state.reserves[i], q.Amounts[i]); err != nil {
				return fmt.Errorf("debit reserve %d: %w", i, err)
			}
		}
		if state.supply, err = fixedpoint.Sub(state.supply, q.Burn); err != nil {
			return fmt.Errorf("lp supply: %w", err)
		}
		if q.Closed() {
			position.Status = model.PositionStatusWithdrawn
			position.ClosedAt = &now
			if state.pool.Pool.LPCount > 0 {
				state.pool.Pool.LPCount--
			}
		}
		if err := commitPoolState(ctx, tx, &state, now); err != nil {
			return err
		}
		fillPosition(&position, state, q.Remaining, now)
		if err := tx.PutPosition(ctx, position); err != nil {
			return fmt.Errorf("put position: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Position{}, RemoveLiquidityQuote{}, fmt.Errorf("remove liquidity from %s: %w", poolID, err)
	}

	e.record(storage.Entry{Kind: storage.EntryLiquidityRemoved, PoolID: poolID, At: now, Position: &position})
	e.logger.Info("liquidity removed",
		zap.String("pool", poolID),
		zap.String("position", position.ID),
		zap.String("lp_tokens_burned", quote.LPTokensBurned),
		zap.String("status", string(position.Status)),
	)
	return position, quote, nil
}
