package deploy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"deltaLens/internal/model"
	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
)

// Sender submits one state-changing call and waits for it to be mined.
type Sender interface {
	Send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (model.Receipt, error)
}

// WireCall is one phase two configuration transaction.
type WireCall struct {
	Label  string
	To     common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// WirePlan builds the phase two calls from the network's addresses.
func WirePlan(network *registry.Network) ([]WireCall, error) {
	lending, err := protocol.LendingABI()
	if err != nil {
		return nil, err
	}
	oracles, err := protocol.OracleRegistryABI()
	if err != nil {
		return nil, err
	}

	names := []registry.Contract{
		registry.DeltaOpen, registry.DeltaVerified, registry.RewardControl,
		registry.ChainLink, registry.RateModel, registry.RMAVOracle, registry.RFRAOracle,
	}
	addrs := make(map[registry.Contract]common.Address, len(names))
	for _, name := range names {
		addr, err := network.Contract(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingDeployment, err)
		}
		addrs[name] = addr
	}
	rmav, err := assetAddress(network, registry.AssetRMAV)
	if err != nil {
		return nil, err
	}
	rfra, err := assetAddress(network, registry.AssetRFRA)
	if err != nil {
		return nil, err
	}

	deltaOpen := addrs[registry.DeltaOpen]
	deltaVerified := addrs[registry.DeltaVerified]
	rewardControl := addrs[registry.RewardControl]
	chainLink := addrs[registry.ChainLink]
	rateModel := addrs[registry.RateModel]
	rmavOracle := addrs[registry.RMAVOracle]
	rfraOracle := addrs[registry.RFRAOracle]

	return []WireCall{
		{Label: "DeltaOpen reward control", To: deltaOpen, ABI: lending, Method: "setRewardControlAddress", Args: []interface{}{rewardControl}},
		{Label: "DeltaVerified reward control", To: deltaVerified, ABI: lending, Method: "setRewardControlAddress", Args: []interface{}{rewardControl}},
		{Label: "oracle rMAV", To: chainLink, ABI: oracles, Method: "addAsset", Args: []interface{}{rmav, rmavOracle}},
		{Label: "oracle rFRA", To: chainLink, ABI: oracles, Method: "addAsset", Args: []interface{}{rfra, rfraOracle}},
		{Label: "market rMAV", To: deltaOpen, ABI: lending, Method: "_supportMarket", Args: []interface{}{rmav, rateModel}},
		{Label: "market rFRA", To: deltaOpen, ABI: lending, Method: "_supportMarket", Args: []interface{}{rfra, rateModel}},
	}, nil
}

func assetAddress(network *registry.Network, id registry.AssetID) (common.Address, error) {
	asset, err := network.Asset(id)
	if err != nil {
		return common.Address{}, err
	}
	if zeroAddress(asset.Address) {
		return common.Address{}, fmt.Errorf("%w: asset %s", ErrMissingDeployment, id)
	}
	return asset.Address, nil
}

// Wire sends the calls in order and stops at the first failure. Receipts of
// the calls that went through are returned either way.
func Wire(ctx context.Context, sender Sender, calls []WireCall, logger *zap.Logger) ([]model.Receipt, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	receipts := make([]model.Receipt, 0, len(calls))
	for _, call := range calls {
		receipt, err := sender.Send(ctx, call.To, call.ABI, call.Method, call.Args...)
		if err != nil {
			return receipts, fmt.Errorf("wire %s: %w", call.Label, err)
		}
		receipts = append(receipts, receipt)
		logger.Info("wired", zap.String("step", call.Label), zap.String("tx_hash", receipt.TxHash))
	}
	return receipts, nil
}
