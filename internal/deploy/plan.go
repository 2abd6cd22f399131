package deploy

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"deltaLens/internal/registry"
)

// Ref is a constructor argument that resolves to an earlier deployment.
type Ref registry.Contract

// Step deploys one artifact and records it under Name.
type Step struct {
	Name     registry.Contract
	Artifact string
	Args     []interface{}
}

// collateralRatio is 0.5 scaled by 1e18.
var collateralRatio = big.NewInt(500_000_000_000_000_000)

// DefaultPlan is the phase one deployment order.
func DefaultPlan() []Step {
	return []Step{
		{Name: registry.DLT, Artifact: "MockERC20", Args: []interface{}{"DLT", "DLT", big.NewInt(18)}},
		{Name: registry.RMAVOracle, Artifact: "MockAggregatorV3", Args: []interface{}{big.NewInt(18)}},
		{Name: registry.RFRAOracle, Artifact: "MockAggregatorV3", Args: []interface{}{big.NewInt(18)}},
		{Name: registry.ChainLink, Artifact: "ChainLink"},
		{Name: registry.DeltaOpen, Artifact: "DeltaOpen", Args: []interface{}{Ref(registry.ChainLink), collateralRatio}},
		{Name: registry.DeltaVerified, Artifact: "DeltaVerified", Args: []interface{}{Ref(registry.ChainLink), collateralRatio}},
		{Name: registry.RewardControl, Artifact: "RewardControl", Args: []interface{}{
			Ref(registry.DeltaVerified), Ref(registry.DeltaOpen), Ref(registry.DLT),
		}},
		{Name: registry.RateModel, Artifact: "RateModel", Args: []interface{}{
			big.NewInt(100), big.NewInt(2000), big.NewInt(100), big.NewInt(3000), big.NewInt(8000), big.NewInt(400),
		}},
	}
}

// resolveArgs swaps references for recorded addresses and fits integer
// arguments to the constructor's declared widths.
func resolveArgs(step Step, recorded registry.Deployments, parsed abi.ABI) ([]interface{}, error) {
	inputs := parsed.Constructor.Inputs
	if len(inputs) != len(step.Args) {
		return nil, fmt.Errorf("%s constructor takes %d args, plan has %d", step.Artifact, len(inputs), len(step.Args))
	}

	out := make([]interface{}, len(step.Args))
	for i, arg := range step.Args {
		switch v := arg.(type) {
		case Ref:
			addr, ok := recorded[string(v)]
			if !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrMissingDeployment, step.Name, v)
			}
			out[i] = addr
		case *big.Int:
			converted, err := fitInteger(v, inputs[i].Type)
			if err != nil {
				return nil, fmt.Errorf("%s arg %d: %w", step.Name, i, err)
			}
			out[i] = converted
		default:
			out[i] = arg
		}
	}
	return out, nil
}

func fitInteger(value *big.Int, typ abi.Type) (interface{}, error) {
	if typ.T != abi.UintTy && typ.T != abi.IntTy {
		return nil, fmt.Errorf("integer given for %s", typ.String())
	}
	target := typ.GetType()
	if target == reflect.TypeOf(value) {
		return value, nil
	}
	if typ.T == abi.UintTy {
		if value.Sign() < 0 || value.BitLen() > typ.Size {
			return nil, fmt.Errorf("%s overflows %s", value, typ.String())
		}
		return reflect.ValueOf(value.Uint64()).Convert(target).Interface(), nil
	}
	if value.BitLen() >= typ.Size {
		return nil, fmt.Errorf("%s overflows %s", value, typ.String())
	}
	return reflect.ValueOf(value.Int64()).Convert(target).Interface(), nil
}

// zeroAddress reports whether addr was never set.
func zeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
