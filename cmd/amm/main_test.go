package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"liquidityEngine/internal/model"
	"liquidityEngine/internal/storage"
)

const (
	testTokenA = "0x1111111111111111111111111111111111111111"
	testTokenB = "0x2222222222222222222222222222222222222222"
	testTrader = "0x4444444444444444444444444444444444444444"
)

func execute(t *testing.T, dir string, args ...string) []byte {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{
		"--state-file", filepath.Join(dir, "ledger.json"),
		"--journal", filepath.Join(dir, "journal.jsonl"),
		"--log-level", "error",
	}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("amm %v: %v", args, err)
	}
	return out.Bytes()
}

func TestCLIPoolLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	var pool model.PoolWithAssets
	out := execute(t, dir, "pool", "create",
		"--token", testTokenA, "--token", testTokenB,
		"--symbol", "AAA", "--symbol", "BBB",
		"--decimals", "0", "--decimals", "0",
	)
	if err := json.Unmarshal(out, &pool); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	if pool.Pool.Name != "AAA/BBB" || len(pool.Assets) != 2 {
		t.Fatalf("unexpected pool: %+v", pool)
	}

	execute(t, dir, "liquidity", "add",
		"--pool", pool.Pool.ID,
		"--provider", testTrader,
		"--amount", testTokenA+"=100000",
		"--amount", testTokenB+"=200000",
	)

	var swap model.Swap
	out = execute(t, dir, "swap", "exec",
		"--pool", pool.Pool.ID,
		"--trader", testTrader,
		"--in", testTokenA,
		"--out", testTokenB,
		"--amount", "1000",
	)
	if err := json.Unmarshal(out, &swap); err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if swap.Status != model.SwapStatusCompleted || swap.AmountOut != "1974" {
		t.Fatalf("unexpected swap: %+v", swap)
	}

	var traded []model.Swap
	if err := json.Unmarshal(execute(t, dir, "swap", "list", "--trader", testTrader), &traded); err != nil {
		t.Fatalf("decode trader swaps: %v", err)
	}
	if len(traded) != 1 || traded[0].ID != swap.ID {
		t.Fatalf("unexpected trader swaps: %+v", traded)
	}

	var positions []model.Position
	if err := json.Unmarshal(execute(t, dir, "liquidity", "positions", "--owner", testTrader), &positions); err != nil {
		t.Fatalf("decode positions: %v", err)
	}
	if len(positions) != 1 || positions[0].PoolID != pool.Pool.ID {
		t.Fatalf("unexpected positions: %+v", positions)
	}

	var prediction model.PricePrediction
	if err := json.Unmarshal(execute(t, dir, "pool", "predict", pool.Pool.ID), &prediction); err != nil {
		t.Fatalf("decode prediction: %v", err)
	}
	if prediction.Samples != 1 || prediction.Direction != model.PriceStable {
		t.Fatalf("unexpected prediction: %+v", prediction)
	}

	var stats model.DexStats
	if err := json.Unmarshal(execute(t, dir, "stats"), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalPools != 1 || stats.TotalSwaps24h != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	entries, err := storage.ReadJournal(filepath.Join(dir, "journal.jsonl"))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	kinds := map[storage.EntryKind]int{}
	for _, entry := range entries {
		kinds[entry.Kind]++
	}
	if kinds[storage.EntryLiquidityAdded] != 1 || kinds[storage.EntrySwapCompleted] != 1 {
		t.Fatalf("unexpected journal kinds: %v", kinds)
	}
}

func TestParseTokenAmounts(t *testing.T) {
	amounts, err := parseTokenAmounts([]string{testTokenA + "=10", " " + testTokenB + " = 20 "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(amounts) != 2 || amounts[1].TokenAddress != testTokenB || amounts[1].Amount != "20" {
		t.Fatalf("unexpected amounts: %+v", amounts)
	}
	if _, err := parseTokenAmounts([]string{"missing-separator"}); err == nil {
		t.Fatalf("expected error for malformed pair")
	}
}
