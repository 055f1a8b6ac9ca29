package token

import (
	"bytes"
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"payoutScope/internal/model"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Cache caches token metadata by address.
type Cache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenInfo
}

func NewCache() *Cache {
	return &Cache{data: make(map[common.Address]model.TokenInfo)}
}

func (c *Cache) Get(address common.Address) (model.TokenInfo, bool) {
	c.mu.RLock()
	info, ok := c.data[address]
	c.mu.RUnlock()
	return info, ok
}

func (c *Cache) Set(address common.Address, info model.TokenInfo) {
	c.mu.Lock()
	c.data[address] = info
	c.mu.Unlock()
}

// Resolve returns cached metadata for token or fetches and caches it.
func (c *Cache) Resolve(ctx context.Context, caller Caller, token common.Address, chainID uint64, logger *zap.Logger) (model.TokenInfo, error) {
	if info, ok := c.Get(token); ok {
		return info, nil
	}
	info, err := FetchTokenInfo(ctx, caller, token, chainID, logger)
	if err != nil {
		return info, err
	}
	c.Set(token, info)
	return info, nil
}

// FetchTokenInfo loads decimals, symbol and name via ERC-20 calls. Decimals are
// required; symbol and name fall back to the bytes32 variants and are left
// empty when neither works.
func FetchTokenInfo(ctx context.Context, caller Caller, token common.Address, chainID uint64, logger *zap.Logger) (model.TokenInfo, error) {
	info := model.TokenInfo{Address: token.Hex(), ChainID: chainID}
	if caller == nil {
		return info, errors.New("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return info, errors.Wrap(err, "parse erc20 abi")
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return info, errors.Wrap(err, "parse erc20 bytes32 abi")
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, errors.Wrapf(err, "pack %s", method)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "call %s", method)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, errors.Wrapf(err, "unpack %s", method)
		}
		if len(values) == 0 {
			return nil, errors.Errorf("empty %s result", method)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return info, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return info, errors.Errorf("unsupported decimals type %T", values[0])
	}
	info.Decimals = decimals

	info.Symbol = readText(call, "symbol", stringABI, bytes32ABI, token, logger)
	info.Name = readText(call, "name", stringABI, bytes32ABI, token, logger)

	return info, nil
}

func readText(call func(string, abi.ABI) ([]interface{}, error), method string, stringABI, bytes32ABI abi.ABI, token common.Address, logger *zap.Logger) string {
	if values, err := call(method, stringABI); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := call(method, bytes32ABI)
	if err != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	text, _ := bytes32ToString(values[0])
	return text
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
