// Package ledger issues read-only contract calls against staking pools and
// ERC20 tokens and converts fixed-point results to decimals.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/model"
)

// Caller is the subset of chain.Client the ledger needs.
type Caller interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Client queries pool and token contracts through a Caller.
type Client struct {
	caller Caller
	tokens *TokenMetaCache
	logger *zap.Logger
}

func NewClient(caller Caller, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		caller: caller,
		tokens: NewTokenMetaCache(),
		logger: logger,
	}
}

// QueryPool calls a view method on a staking pool contract.
func (c *Client) QueryPool(ctx context.Context, pool common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeInternal, "parse pool abi", err)
	}
	return c.query(ctx, parsed, pool, method, args...)
}

// QueryToken calls a view method on an ERC20 token contract.
func (c *Client) QueryToken(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := TokenABI()
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeInternal, "parse erc20 abi", err)
	}
	return c.query(ctx, parsed, token, method, args...)
}

func (c *Client) query(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if c.caller == nil {
		return nil, oberr.New(oberr.CodeInternal, "chain client is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeInternal, fmt.Sprintf("pack %s", method), err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeLedgerUnavailable, fmt.Sprintf("call %s on %s", method, to.Hex()), err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, oberr.Wrap(oberr.CodeLedgerUnavailable, fmt.Sprintf("unpack %s on %s", method, to.Hex()), err)
	}
	if len(values) == 0 {
		return nil, oberr.New(oberr.CodeLedgerUnavailable, fmt.Sprintf("%s on %s returned nothing", method, to.Hex()))
	}
	return values, nil
}

// BlockNumber returns the current chain height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if c.caller == nil {
		return 0, oberr.New(oberr.CodeInternal, "chain client is nil")
	}
	height, err := c.caller.LatestBlockNumber(ctx)
	if err != nil {
		return 0, oberr.Wrap(oberr.CodeLedgerUnavailable, "get block number", err)
	}
	return height, nil
}

// StartBlock returns the first rewarded block of a pool.
func (c *Client) StartBlock(ctx context.Context, pool common.Address) (uint64, error) {
	return c.poolUint(ctx, pool, "startBlock")
}

// BonusEndBlock returns the last rewarded block of a pool.
func (c *Client) BonusEndBlock(ctx context.Context, pool common.Address) (uint64, error) {
	return c.poolUint(ctx, pool, "bonusEndBlock")
}

func (c *Client) poolUint(ctx context.Context, pool common.Address, method string) (uint64, error) {
	values, err := c.QueryPool(ctx, pool, method)
	if err != nil {
		return 0, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return 0, oberr.Wrap(oberr.CodeLedgerUnavailable, method, err)
	}
	if !value.IsUint64() {
		return 0, oberr.New(oberr.CodeLedgerUnavailable, fmt.Sprintf("%s overflows uint64: %s", method, value))
	}
	return value.Uint64(), nil
}

// RewardPerBlock returns the pool emission rate in reward-token units.
func (c *Client) RewardPerBlock(ctx context.Context, pool, rewardToken common.Address) (decimal.Decimal, error) {
	meta, err := c.TokenMeta(ctx, rewardToken)
	if err != nil {
		return decimal.Zero, err
	}
	values, err := c.QueryPool(ctx, pool, "rewardPerBlock")
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := asBigInt(values[0])
	if err != nil {
		return decimal.Zero, oberr.Wrap(oberr.CodeLedgerUnavailable, "rewardPerBlock", err)
	}
	return ToDecimal(raw, meta.Decimals), nil
}

// BalanceOf returns the token balance held by owner.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (decimal.Decimal, error) {
	meta, err := c.TokenMeta(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	values, err := c.QueryToken(ctx, token, "balanceOf", owner)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := asBigInt(values[0])
	if err != nil {
		return decimal.Zero, oberr.Wrap(oberr.CodeLedgerUnavailable, "balanceOf", err)
	}
	return ToDecimal(raw, meta.Decimals), nil
}

// UserInfo returns the amount user has staked in pool, in deposit-token units.
func (c *Client) UserInfo(ctx context.Context, pool, depositToken, user common.Address) (decimal.Decimal, error) {
	meta, err := c.TokenMeta(ctx, depositToken)
	if err != nil {
		return decimal.Zero, err
	}
	values, err := c.QueryPool(ctx, pool, "userInfo", user)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := asBigInt(values[0])
	if err != nil {
		return decimal.Zero, oberr.Wrap(oberr.CodeLedgerUnavailable, "userInfo", err)
	}
	return ToDecimal(raw, meta.Decimals), nil
}

// TokenMeta loads decimals, symbol and name for a token. Decimals are
// required; symbol and name are best effort.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := c.tokens.Get(token); ok {
		return meta, nil
	}

	meta := model.TokenMeta{Address: token.Hex()}
	values, err := c.QueryToken(ctx, token, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, oberr.Wrap(oberr.CodeLedgerUnavailable, "decimals", err)
	}
	meta.Decimals = decimals
	meta.Symbol = c.tokenString(ctx, token, "symbol")
	meta.Name = c.tokenString(ctx, token, "name")

	c.tokens.Set(token, meta)
	return meta, nil
}

func (c *Client) tokenString(ctx context.Context, token common.Address, method string) string {
	values, err := c.QueryToken(ctx, token, method)
	if err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}

	b32, perr := tokenBytes32ABI()
	if perr != nil {
		return ""
	}
	values, err2 := c.query(ctx, b32, token, method)
	if err2 == nil {
		if s, ok := bytes32ToString(values[0]); ok {
			return s
		}
	}
	c.logger.Debug("token string call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
	return ""
}
