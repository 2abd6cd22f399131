package protocol

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const lendingABIJSON = `[
  {"inputs": [{"name": "account", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getSupplyBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getSupplyBalanceWithInterest", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getBorrowBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getBorrowBalanceWithInterest", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "collateralRatio", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "supply", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "borrow", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "withdraw", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "repayBorrow", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "rewardControl", "type": "address"}], "name": "setRewardControlAddress", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "interestRateModel", "type": "address"}], "name": "_supportMarket", "outputs": [{"type": "uint256"}], "stateMutability": "nonpayable", "type": "function"}
]`

const insuranceABIJSON = `[
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "splitRisk", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "invest", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "divest", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "claimAll", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "getInsuranceBalances", "outputs": [{"type": "uint256"}, {"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const oracleRegistryABIJSON = `[
  {"inputs": [{"name": "asset", "type": "address"}, {"name": "aggregator", "type": "address"}], "name": "addAsset", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

type lazyABI struct {
	once   sync.Once
	source string
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.source))
	})
	return l.parsed, l.err
}

var (
	erc20ABI          = &lazyABI{source: erc20ABIJSON}
	erc20Bytes32ABI   = &lazyABI{source: erc20ABIBytes32JSON}
	lendingABI        = &lazyABI{source: lendingABIJSON}
	insuranceABI      = &lazyABI{source: insuranceABIJSON}
	oracleRegistryABI = &lazyABI{source: oracleRegistryABIJSON}
)

// ERC20ABI returns the token ABI (RToken and mock ERC20 share it).
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// LendingABI returns the DeltaOpen/DeltaVerified ABI.
func LendingABI() (abi.ABI, error) { return lendingABI.get() }

// InsuranceABI returns the DeltaInsurance ABI.
func InsuranceABI() (abi.ABI, error) { return insuranceABI.get() }

// OracleRegistryABI returns the ChainLink adapter ABI.
func OracleRegistryABI() (abi.ABI, error) { return oracleRegistryABI.get() }
