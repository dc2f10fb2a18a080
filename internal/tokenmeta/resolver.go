// Package tokenmeta resolves ERC20 decimals, symbol and name for pool assets.
package tokenmeta

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

const defaultCacheSize = 256

// Caller executes read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Resolver struct {
	caller Caller
	cache  *lru.Cache[common.Address, model.TokenMeta]
	logger *zap.Logger
}

func NewResolver(caller Caller, logger *zap.Logger) (*Resolver, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[common.Address, model.TokenMeta](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return &Resolver{caller: caller, cache: cache, logger: logger}, nil
}

// Resolve loads token metadata. decimals is required; symbol and name fall
// back to the bytes32 encoding and are left empty when both fail.
func (r *Resolver) Resolve(ctx context.Context, address string) (model.TokenMeta, error) {
	if !common.IsHexAddress(address) {
		return model.TokenMeta{}, fmt.Errorf("invalid token address: %s", address)
	}
	token := common.HexToAddress(address)
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}

	abis, err := erc20ABIs()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	stringABI, bytes32ABI := abis[0], abis[1]

	meta := model.TokenMeta{Address: token.Hex()}
	values, err := r.call(ctx, token, stringABI, "decimals")
	if err != nil {
		return model.TokenMeta{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return model.TokenMeta{}, fmt.Errorf("decimals of %s: unsupported type %T", token.Hex(), values[0])
	}
	meta.Decimals = decimals
	meta.Symbol = r.text(ctx, token, stringABI, bytes32ABI, "symbol")
	meta.Name = r.text(ctx, token, stringABI, bytes32ABI, "name")

	r.cache.Add(token, meta)
	return meta, nil
}

func (r *Resolver) text(ctx context.Context, token common.Address, stringABI, bytes32ABI abi.ABI, method string) string {
	values, err := r.call(ctx, token, stringABI, method)
	if err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err = r.call(ctx, token, bytes32ABI, method)
	if err == nil {
		if raw, ok := values[0].([32]byte); ok {
			return string(bytes.TrimRight(raw[:], "\x00"))
		}
	}
	r.logger.Debug("token text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
	return ""
}

func (r *Resolver) call(ctx context.Context, token common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}
