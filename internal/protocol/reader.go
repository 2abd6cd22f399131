package protocol

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"deltaLens/internal/chain"
	"deltaLens/internal/model"
)

// Reader issues the read-only protocol calls.
type Reader struct {
	caller    chain.Caller
	lending   common.Address
	insurance common.Address
}

// NewReader binds the read calls to the lending and insurance contracts.
func NewReader(caller chain.Caller, lending, insurance common.Address) *Reader {
	return &Reader{caller: caller, lending: lending, insurance: insurance}
}

// BalanceOf returns the ERC20 balance of owner in base units.
func (r *Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return r.callUint(ctx, token, parsed, "balanceOf", owner)
}

// Allowance returns how much spender may move on behalf of owner.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return r.callUint(ctx, token, parsed, "allowance", owner, spender)
}

// Liquidity is the lending contract's own balance of asset.
func (r *Reader) Liquidity(ctx context.Context, asset common.Address) (*big.Int, error) {
	return r.BalanceOf(ctx, asset, r.lending)
}

// SupplyBalance reads the supplied principal and the balance with interest.
func (r *Reader) SupplyBalance(ctx context.Context, account, asset common.Address) (model.BalanceSplit, error) {
	return r.balanceSplit(ctx, account, asset, "getSupplyBalance", "getSupplyBalanceWithInterest")
}

// BorrowBalance reads the borrowed principal and the balance with interest.
func (r *Reader) BorrowBalance(ctx context.Context, account, asset common.Address) (model.BalanceSplit, error) {
	return r.balanceSplit(ctx, account, asset, "getBorrowBalance", "getBorrowBalanceWithInterest")
}

// CollateralRatio returns the protocol-wide ratio scaled by 1e18.
func (r *Reader) CollateralRatio(ctx context.Context) (*big.Int, error) {
	parsed, err := LendingABI()
	if err != nil {
		return nil, err
	}
	return r.callUint(ctx, r.lending, parsed, "collateralRatio")
}

// InsuranceBalances returns the two tranche balances held by account.
func (r *Reader) InsuranceBalances(ctx context.Context, account common.Address) (*big.Int, *big.Int, error) {
	parsed, err := InsuranceABI()
	if err != nil {
		return nil, nil, err
	}
	values, err := call(ctx, r.caller, r.insurance, parsed, "getInsuranceBalances", account)
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("getInsuranceBalances return size %d", len(values))
	}
	first, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	second, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func (r *Reader) balanceSplit(ctx context.Context, account, asset common.Address, principalMethod, interestMethod string) (model.BalanceSplit, error) {
	parsed, err := LendingABI()
	if err != nil {
		return model.BalanceSplit{}, err
	}
	principal, err := r.callUint(ctx, r.lending, parsed, principalMethod, account, asset)
	if err != nil {
		return model.BalanceSplit{}, err
	}
	withInterest, err := r.callUint(ctx, r.lending, parsed, interestMethod, account, asset)
	if err != nil {
		return model.BalanceSplit{}, err
	}
	return model.BalanceSplit{Principal: principal, WithInterest: withInterest}, nil
}

func (r *Reader) callUint(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	values, err := call(ctx, r.caller, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return value, nil
}

func call(ctx context.Context, caller chain.Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
