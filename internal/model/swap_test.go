package model

import (
	"encoding/json"
	"testing"
)

func TestSwapJSONAmountsAreStrings(t *testing.T) {
	swap := Swap{
		ID:              "swap-1",
		PoolID:          "pool-1",
		TraderAddress:   "0x1111111111111111111111111111111111111111",
		TokenInAddress:  "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TokenOutAddress: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		AmountIn:        "12345678901234567890123",
		AmountOut:       "42",
		FeeAmount:       "37037036703703703",
		Status:          SwapStatusCompleted,
	}

	data, err := json.Marshal(swap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount_in", "amount_out", "fee_amount"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if decoded["status"] != "completed" {
		t.Fatalf("status mismatch: %v", decoded["status"])
	}
}

func TestPoolWithAssetsLookupIgnoresCase(t *testing.T) {
	p := PoolWithAssets{
		Assets: []PoolAsset{
			{TokenAddress: "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa", TokenSymbol: "AAA"},
			{TokenAddress: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", TokenSymbol: "BBB"},
		},
	}

	asset, ok := p.Asset("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	if !ok || asset.TokenSymbol != "AAA" {
		t.Fatalf("expected AAA, got %+v (ok=%v)", asset, ok)
	}
	if _, ok := p.Asset("0xcccccccccccccccccccccccccccccccccccccccc"); ok {
		t.Fatalf("unexpected match for unknown token")
	}
}
