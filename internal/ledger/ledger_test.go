package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oberr "oceanbot/internal/errors"
)

var (
	poolAddr  = common.HexToAddress("0xF50d7a5066D74c67361176bEddfA0A5379a5d429")
	tokenAddr = common.HexToAddress("0xdD97AB35e3C0820215bc85a395e13671d84CCBa2")
	userAddr  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeCaller struct {
	height    uint64
	responses map[string][]byte
	calls     int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[string][]byte)}
}

func (f *fakeCaller) set(t *testing.T, parsed abi.ABI, to common.Address, method string, outputs ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok, method)
	packed, err := m.Outputs.Pack(outputs...)
	require.NoError(t, err)
	f.responses[to.Hex()+":"+hexutil.Encode(m.ID)] = packed
}

func (f *fakeCaller) LatestBlockNumber(context.Context) (uint64, error) {
	return f.height, nil
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	resp, ok := f.responses[msg.To.Hex()+":"+hexutil.Encode(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func mustABIs(t *testing.T) (abi.ABI, abi.ABI) {
	t.Helper()
	pool, err := PoolABI()
	require.NoError(t, err)
	token, err := TokenABI()
	require.NoError(t, err)
	return pool, token
}

func TestToDecimalIsExact(t *testing.T) {
	raw, ok := new(big.Int).SetString("1234567890123456789", 10)
	require.True(t, ok)

	assert.Equal(t, "1.234567890123456789", ToDecimal(raw, 18).String())
	assert.Equal(t, "0.000001", ToDecimal(big.NewInt(1), 6).String())
	assert.Equal(t, "42", ToDecimal(big.NewInt(42), 0).String())
	assert.True(t, ToDecimal(nil, 18).IsZero())
}

func TestBalanceOfUsesTokenDecimals(t *testing.T) {
	_, tokenABI := mustABIs(t)
	caller := newFakeCaller()
	caller.set(t, tokenABI, tokenAddr, "decimals", uint8(9))
	caller.set(t, tokenABI, tokenAddr, "symbol", "JAWS")
	caller.set(t, tokenABI, tokenAddr, "name", "AutoShark")
	caller.set(t, tokenABI, tokenAddr, "balanceOf", big.NewInt(1_500_000_001))

	client := NewClient(caller, nil)
	got, err := client.BalanceOf(context.Background(), tokenAddr, poolAddr)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.500000001").Equal(got), got.String())
}

func TestRewardPerBlockAndWindow(t *testing.T) {
	poolABI, tokenABI := mustABIs(t)
	caller := newFakeCaller()
	caller.set(t, tokenABI, tokenAddr, "decimals", uint8(18))
	caller.set(t, tokenABI, tokenAddr, "symbol", "GUARD")
	caller.set(t, tokenABI, tokenAddr, "name", "Guard")
	reward, _ := new(big.Int).SetString("250000000000000000", 10)
	caller.set(t, poolABI, poolAddr, "rewardPerBlock", reward)
	caller.set(t, poolABI, poolAddr, "startBlock", big.NewInt(100))
	caller.set(t, poolABI, poolAddr, "bonusEndBlock", big.NewInt(900))

	client := NewClient(caller, nil)
	ctx := context.Background()

	rpb, err := client.RewardPerBlock(ctx, poolAddr, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.25", rpb.String())

	start, err := client.StartBlock(ctx, poolAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), start)

	end, err := client.BonusEndBlock(ctx, poolAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), end)
}

func TestUserInfoReturnsStakedAmount(t *testing.T) {
	poolABI, tokenABI := mustABIs(t)
	caller := newFakeCaller()
	caller.set(t, tokenABI, tokenAddr, "decimals", uint8(18))
	amount, _ := new(big.Int).SetString("3000000000000000000", 10)
	caller.set(t, poolABI, poolAddr, "userInfo", amount, big.NewInt(7))

	got, err := NewClient(caller, nil).UserInfo(context.Background(), poolAddr, tokenAddr, userAddr)
	require.NoError(t, err)
	assert.Equal(t, "3", got.String())
}

func TestTokenMetaIsCachedAndToleratesMissingStrings(t *testing.T) {
	_, tokenABI := mustABIs(t)
	caller := newFakeCaller()
	caller.set(t, tokenABI, tokenAddr, "decimals", uint8(18))

	client := NewClient(caller, nil)
	meta, err := client.TokenMeta(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.Empty(t, meta.Symbol)

	calls := caller.calls
	_, err = client.TokenMeta(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, calls, caller.calls)
}

func TestTokenMetaFallsBackToBytes32Symbol(t *testing.T) {
	_, tokenABI := mustABIs(t)
	b32, err := tokenBytes32ABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, tokenABI, tokenAddr, "decimals", uint8(18))
	var symbol [32]byte
	copy(symbol[:], "MKR")
	caller.set(t, b32, tokenAddr, "symbol", symbol)

	meta, err := NewClient(caller, nil).TokenMeta(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "MKR", meta.Symbol)
}

func TestCallFailureIsLedgerUnavailable(t *testing.T) {
	client := NewClient(newFakeCaller(), nil)
	_, err := client.BonusEndBlock(context.Background(), poolAddr)
	require.Error(t, err)
	assert.True(t, oberr.Is(err, oberr.CodeLedgerUnavailable))

	_, err = client.BalanceOf(context.Background(), tokenAddr, poolAddr)
	require.Error(t, err)
	assert.True(t, oberr.Is(err, oberr.CodeLedgerUnavailable))
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0xdD97AB35e3C0820215bc85a395e13671d84CCBa2 ", ""})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tokenAddr, got[0])

	_, err = ParseAddresses([]string{"not-an-address"})
	require.Error(t, err)
}
