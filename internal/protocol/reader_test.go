package protocol

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCall struct {
	to     common.Address
	method string
	args   []interface{}
}

// fakeCaller answers eth_call by decoding the selector and packing the
// configured outputs.
type fakeCaller struct {
	abis    []abi.ABI
	results map[string][]interface{}
	calls   []fakeCall
}

func newFakeCaller(t *testing.T, abis ...abi.ABI) *fakeCaller {
	t.Helper()
	return &fakeCaller{abis: abis, results: make(map[string][]interface{})}
}

func (f *fakeCaller) set(to common.Address, method string, values ...interface{}) {
	f.results[to.Hex()+":"+method] = values
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	for _, parsed := range f.abis {
		method, err := parsed.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		f.calls = append(f.calls, fakeCall{to: *msg.To, method: method.Name, args: args})

		values, ok := f.results[msg.To.Hex()+":"+method.Name]
		if !ok {
			return nil, fmt.Errorf("execution reverted: %s", method.Name)
		}
		return method.Outputs.Pack(values...)
	}
	return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
}

var (
	lendingAddr   = common.HexToAddress("0x91eCdf26A91D72ec5cA44A496A422B8036A2B86B")
	insuranceAddr = common.HexToAddress("0x1D1bCD24B0b41df49ee45D4A3896bc2f284aC4AE")
	tokenAddr     = common.HexToAddress("0xad95cc76Ce5F9cc715a0093261d70dF72E61afAe")
	accountAddr   = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
)

func mustABI(t *testing.T, fn func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := fn()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return parsed
}

func bigFromString(t *testing.T, value string) *big.Int {
	t.Helper()
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		t.Fatalf("bad int %s", value)
	}
	return out
}

func TestReaderSupplyBalance(t *testing.T) {
	caller := newFakeCaller(t, mustABI(t, LendingABI))
	caller.set(lendingAddr, "getSupplyBalance", bigFromString(t, "1000000000000000000"))
	caller.set(lendingAddr, "getSupplyBalanceWithInterest", bigFromString(t, "1050000000000000000"))

	reader := NewReader(caller, lendingAddr, insuranceAddr)
	split, err := reader.SupplyBalance(context.Background(), accountAddr, tokenAddr)
	if err != nil {
		t.Fatalf("supply balance: %v", err)
	}
	if got := split.Interest().String(); got != "50000000000000000" {
		t.Fatalf("interest mismatch: %s", got)
	}

	if len(caller.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(caller.calls))
	}
	first := caller.calls[0]
	if first.method != "getSupplyBalance" || first.args[0].(common.Address) != accountAddr || first.args[1].(common.Address) != tokenAddr {
		t.Fatalf("unexpected call: %+v", first)
	}
}

func TestReaderLiquidityUsesLendingBalance(t *testing.T) {
	caller := newFakeCaller(t, mustABI(t, ERC20ABI))
	caller.set(tokenAddr, "balanceOf", big.NewInt(777))

	reader := NewReader(caller, lendingAddr, insuranceAddr)
	liquidity, err := reader.Liquidity(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if liquidity.Int64() != 777 {
		t.Fatalf("liquidity mismatch: %s", liquidity)
	}
	if owner := caller.calls[0].args[0].(common.Address); owner != lendingAddr {
		t.Fatalf("liquidity should query the lending contract balance, got %s", owner.Hex())
	}
}

func TestReaderInsuranceBalances(t *testing.T) {
	caller := newFakeCaller(t, mustABI(t, InsuranceABI))
	caller.set(insuranceAddr, "getInsuranceBalances", big.NewInt(3), big.NewInt(4))

	reader := NewReader(caller, lendingAddr, insuranceAddr)
	safe, risky, err := reader.InsuranceBalances(context.Background(), accountAddr)
	if err != nil {
		t.Fatalf("insurance balances: %v", err)
	}
	if safe.Int64() != 3 || risky.Int64() != 4 {
		t.Fatalf("unexpected balances: %s %s", safe, risky)
	}
}

func TestReaderPropagatesRevert(t *testing.T) {
	caller := newFakeCaller(t, mustABI(t, LendingABI))
	reader := NewReader(caller, lendingAddr, insuranceAddr)
	if _, err := reader.CollateralRatio(context.Background()); err == nil {
		t.Fatalf("expected revert error")
	}
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	bytes32ABI := mustABI(t, erc20Bytes32ABI.get)
	stringABI := mustABI(t, ERC20ABI)

	var symbol [32]byte
	copy(symbol[:], "MKR")

	caller := newFakeCaller(t, stringABI)
	caller.set(tokenAddr, "decimals", uint8(18))
	// The string ABI and the bytes32 ABI share selectors, so the fake answers
	// symbol with bytes32 data that fails string decoding first.
	packed, err := bytes32ABI.Methods["symbol"].Outputs.Pack(symbol)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	fallback := &rawCaller{inner: caller, raw: map[string][]byte{"symbol": packed}, parsed: stringABI}

	meta, err := FetchTokenMeta(context.Background(), fallback, tokenAddr, nil)
	if err != nil {
		t.Fatalf("fetch meta: %v", err)
	}
	if meta.Decimals != 18 || meta.Symbol != "MKR" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

// rawCaller returns raw bytes for selected methods and defers the rest.
type rawCaller struct {
	inner  *fakeCaller
	raw    map[string][]byte
	parsed abi.ABI
}

func (r *rawCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if method, err := r.parsed.MethodById(msg.Data[:4]); err == nil {
		if out, ok := r.raw[method.Name]; ok {
			return out, nil
		}
	}
	return r.inner.CallContract(ctx, msg, blockNumber)
}
