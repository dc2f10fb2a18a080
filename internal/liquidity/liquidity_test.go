package liquidity

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityEngine/internal/curve"
	"liquidityEngine/internal/fixedpoint"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestQuoteAddFirstDeposit(t *testing.T) {
	quote, err := QuoteAdd(fixedpoint.Zero(), []*uint256.Int{u(0), u(0)}, []*uint256.Int{u(10000), u(10000)})
	if err != nil {
		t.Fatalf("quote add: %v", err)
	}
	if quote.LPTokens.Uint64() != 9000 {
		t.Fatalf("expected 9000 shares, got %s", quote.LPTokens.Dec())
	}
	if quote.Burned.Uint64() != fixedpoint.MinimumLiquidity {
		t.Fatalf("expected burn %d, got %s", fixedpoint.MinimumLiquidity, quote.Burned.Dec())
	}
	if !quote.ShareOfPool.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100%% share, got %s", quote.ShareOfPool)
	}
}

func TestQuoteAddFirstDepositTooSmall(t *testing.T) {
	_, err := QuoteAdd(fixedpoint.Zero(), []*uint256.Int{u(0), u(0)}, []*uint256.Int{u(1000), u(1000)})
	if !errors.Is(err, ErrInsufficientLiquidityMinted) {
		t.Fatalf("expected insufficient liquidity minted, got %v", err)
	}
}

func TestQuoteAddFirstDepositNeedsEveryAsset(t *testing.T) {
	_, err := QuoteAdd(fixedpoint.Zero(), []*uint256.Int{u(0), u(0)}, []*uint256.Int{u(5000), nil})
	if !errors.Is(err, fixedpoint.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestQuoteAddUsesScarcestRatio(t *testing.T) {
	reserves := []*uint256.Int{u(100_000), u(200_000)}
	quote, err := QuoteAdd(u(50_000), reserves, []*uint256.Int{u(10_000), u(50_000)})
	if err != nil {
		t.Fatalf("quote add: %v", err)
	}
	// ratios 0.1 and 0.25; the binding one is 0.1
	if quote.LPTokens.Uint64() != 5000 {
		t.Fatalf("expected 5000 shares, got %s", quote.LPTokens.Dec())
	}
	if quote.Amounts[0].Uint64() != 10_000 || quote.Amounts[1].Uint64() != 20_000 {
		t.Fatalf("unexpected required amounts %s/%s", quote.Amounts[0].Dec(), quote.Amounts[1].Dec())
	}
	// 5000*100/55000
	if got := quote.ShareOfPool.StringFixed(4); got != "9.0909" {
		t.Fatalf("unexpected share of pool %s", got)
	}
}

func TestQuoteAddRejectsEmptyReserve(t *testing.T) {
	_, err := QuoteAdd(u(1), []*uint256.Int{u(0), u(10)}, []*uint256.Int{u(5), u(5)})
	if !errors.Is(err, curve.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestAddQuoteCheck(t *testing.T) {
	quote := AddQuote{LPTokens: u(100)}
	if err := quote.Check(u(101)); !errors.Is(err, ErrMinimumLpNotMet) {
		t.Fatalf("expected minimum lp not met, got %v", err)
	}
	if err := quote.Check(u(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuoteRemoveProportional(t *testing.T) {
	quote, err := QuoteRemove(u(9000), u(10_000), []*uint256.Int{u(10_000), u(40_000)}, 50)
	if err != nil {
		t.Fatalf("quote remove: %v", err)
	}
	if quote.Burn.Uint64() != 4500 || quote.Remaining.Uint64() != 4500 {
		t.Fatalf("unexpected burn %s remaining %s", quote.Burn.Dec(), quote.Remaining.Dec())
	}
	if quote.Amounts[0].Uint64() != 4500 || quote.Amounts[1].Uint64() != 18_000 {
		t.Fatalf("unexpected payouts %s/%s", quote.Amounts[0].Dec(), quote.Amounts[1].Dec())
	}
	if quote.Closed() {
		t.Fatalf("half withdrawal must not close the position")
	}
}

func TestQuoteRemoveFloorsPercentage(t *testing.T) {
	quote, err := QuoteRemove(u(10_000), u(10_000), []*uint256.Int{u(10_000)}, 33.339)
	if err != nil {
		t.Fatalf("quote remove: %v", err)
	}
	if quote.Burn.Uint64() != 3333 {
		t.Fatalf("expected burn 3333, got %s", quote.Burn.Dec())
	}
	if quote.ShareRedeemed.String() != "33.33" {
		t.Fatalf("unexpected share redeemed %s", quote.ShareRedeemed)
	}
}

func TestQuoteRemoveRejectsBadPercentage(t *testing.T) {
	for _, pct := range []float64{0, -1, 100.01} {
		if _, err := QuoteRemove(u(1), u(1), []*uint256.Int{u(1)}, pct); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("pct %v: expected invalid percentage, got %v", pct, err)
		}
	}
}

func TestQuoteRemoveRejectsSubBasisPointPercentage(t *testing.T) {
	for _, pct := range []float64{0.001, 0.0099} {
		if _, err := QuoteRemove(u(10_000), u(10_000), []*uint256.Int{u(10_000)}, pct); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("pct %v: expected invalid percentage, got %v", pct, err)
		}
	}
	quote, err := QuoteRemove(u(10_000), u(10_000), []*uint256.Int{u(10_000)}, 0.01)
	if err != nil {
		t.Fatalf("quote remove 0.01: %v", err)
	}
	if quote.Burn.Uint64() != 1 {
		t.Fatalf("expected burn 1, got %s", quote.Burn.Dec())
	}
}

func TestRemoveQuoteCheck(t *testing.T) {
	quote := RemoveQuote{Amounts: []*uint256.Int{u(10), u(20)}}
	if err := quote.Check([]*uint256.Int{nil, u(21)}); !errors.Is(err, ErrMinimumAmountNotMet) {
		t.Fatalf("expected minimum amount not met, got %v", err)
	}
	if err := quote.Check([]*uint256.Int{u(10), u(20)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddThenRemoveNeverPaysMore(t *testing.T) {
	reserves := []*uint256.Int{u(1_000_003), u(2_000_011)}
	supply := u(1_414_000)
	deposit := []*uint256.Int{u(33_337), u(70_001)}

	add, err := QuoteAdd(supply, reserves, deposit)
	if err != nil {
		t.Fatalf("quote add: %v", err)
	}
	newReserves := make([]*uint256.Int, len(reserves))
	for i := range reserves {
		newReserves[i] = new(uint256.Int).Add(reserves[i], add.Amounts[i])
		if add.Amounts[i].Gt(deposit[i]) {
			t.Fatalf("asset %d credited %s above deposit %s", i, add.Amounts[i].Dec(), deposit[i].Dec())
		}
	}
	newSupply := new(uint256.Int).Add(supply, add.LPTokens)

	remove, err := QuoteRemove(add.LPTokens, newSupply, newReserves, 100)
	if err != nil {
		t.Fatalf("quote remove: %v", err)
	}
	if !remove.Closed() {
		t.Fatalf("full withdrawal should close the position")
	}
	for i := range deposit {
		if remove.Amounts[i].Gt(deposit[i]) {
			t.Fatalf("asset %d returned %s above deposit %s", i, remove.Amounts[i].Dec(), deposit[i].Dec())
		}
	}
}
