package tokenmeta

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
)

// fakeCaller answers by 4-byte selector and counts calls.
type fakeCaller struct {
	responses map[string][]byte
	calls     int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	resp, ok := f.responses[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func pack(t *testing.T, bytes32 bool, method string, value interface{}) (string, []byte) {
	t.Helper()
	abis, err := erc20ABIs()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	parsed := abis[0]
	if bytes32 {
		parsed = abis[1]
	}
	m := parsed.Methods[method]
	out, err := m.Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return string(m.ID), out
}

func TestResolveStringMetadata(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	for method, value := range map[string]interface{}{"decimals": uint8(6), "symbol": "USDC", "name": "USD Coin"} {
		id, out := pack(t, false, method, value)
		caller.responses[id] = out
	}

	r, err := NewResolver(caller, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	meta, err := r.Resolve(context.Background(), "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if meta.Decimals != 6 || meta.Symbol != "USDC" || meta.Name != "USD Coin" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.Address != "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48" {
		t.Fatalf("address not checksummed: %s", meta.Address)
	}

	calls := caller.calls
	if _, err := r.Resolve(context.Background(), meta.Address); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if caller.calls != calls {
		t.Fatalf("expected cache hit, calls %d -> %d", calls, caller.calls)
	}
}

func TestResolveBytes32Fallback(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	id, out := pack(t, false, "decimals", uint8(18))
	caller.responses[id] = out
	var symbol [32]byte
	copy(symbol[:], "MKR")
	id, out = pack(t, true, "symbol", symbol)
	caller.responses[id] = out

	r, err := NewResolver(caller, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	meta, err := r.Resolve(context.Background(), "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if meta.Symbol != "MKR" || meta.Decimals != 18 || meta.Name != "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if bytes.ContainsRune([]byte(meta.Symbol), 0) {
		t.Fatalf("symbol keeps padding: %q", meta.Symbol)
	}
}

func TestResolveRequiresDecimals(t *testing.T) {
	r, err := NewResolver(&fakeCaller{responses: map[string][]byte{}}, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"); err == nil {
		t.Fatalf("expected error without decimals")
	}
	if _, err := r.Resolve(context.Background(), "nope"); err == nil {
		t.Fatalf("expected invalid address error")
	}
}
