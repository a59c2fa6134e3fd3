package ledger

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Smart-chef style staking pool.
const poolABIJSON = `[
  {"inputs": [], "name": "rewardPerBlock", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "startBlock", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "bonusEndBlock", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "stakedToken", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "rewardToken", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "", "type": "address"}], "name": "userInfo", "outputs": [{"name": "amount", "type": "uint256"}, {"name": "rewardDebt", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIStringJSON = `[
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for symbol and name.
const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	poolABI         abi.ABI
	poolABIOnce     sync.Once
	poolABIErr      error
	erc20ABI        abi.ABI
	erc20ABIOnce    sync.Once
	erc20ABIErr     error
	erc20B32ABI     abi.ABI
	erc20B32ABIOnce sync.Once
	erc20B32ABIErr  error
)

// PoolABI returns the parsed staking pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

// TokenABI returns the parsed ERC20 ABI.
func TokenABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
	})
	return erc20ABI, erc20ABIErr
}

func tokenBytes32ABI() (abi.ABI, error) {
	erc20B32ABIOnce.Do(func() {
		erc20B32ABI, erc20B32ABIErr = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20B32ABI, erc20B32ABIErr
}
