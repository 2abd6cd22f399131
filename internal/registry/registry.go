package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Contract is the logical name of a protocol contract, matching the keys of
// the deployments file.
type Contract string

const (
	DLT           Contract = "DLT"
	RMAVOracle    Contract = "rMAV_ORACLE"
	RFRAOracle    Contract = "rFRA_ORACLE"
	ChainLink     Contract = "CHAINLINK"
	DeltaOpen     Contract = "DELTA_OPEN"
	DeltaVerified Contract = "DELTA_VERIFIED"
	RewardControl Contract = "REWARD_CONTROL"
	RateModel     Contract = "RATE_MODEL"
	Insurance     Contract = "DELTA_INSURANCE"
	Faucet        Contract = "FAUCET"
)

// Network holds the per-chain address book.
type Network struct {
	Name      string
	ChainID   uint64
	Contracts map[Contract]common.Address
	Assets    []Asset
}

// Contract returns the address for name or ErrMissingContract.
func (n *Network) Contract(name Contract) (common.Address, error) {
	addr, ok := n.Contracts[name]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s on %s", ErrMissingContract, name, n.Name)
	}
	return addr, nil
}

// Asset resolves an asset identifier on this network.
func (n *Network) Asset(id AssetID) (Asset, error) {
	for _, asset := range n.Assets {
		if asset.ID == id {
			return asset, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s on %s", ErrUnknownAsset, id, n.Name)
}

// ResolveAsset parses input and resolves it on this network.
func (n *Network) ResolveAsset(input string) (Asset, error) {
	id, err := ParseAssetID(input)
	if err != nil {
		return Asset{}, err
	}
	return n.Asset(id)
}

// Clone returns a deep copy that can be modified without touching the built-ins.
func (n *Network) Clone() *Network {
	out := &Network{
		Name:      n.Name,
		ChainID:   n.ChainID,
		Contracts: make(map[Contract]common.Address, len(n.Contracts)),
		Assets:    append([]Asset(nil), n.Assets...),
	}
	for k, v := range n.Contracts {
		out.Contracts[k] = v
	}
	return out
}

// Apply overlays a deployments address map. Asset keys ("rMAV", "rFRA")
// replace the asset addresses; everything else is treated as a contract.
func (n *Network) Apply(d Deployments) {
	for key, addr := range d {
		if id, err := ParseAssetID(key); err == nil {
			for i := range n.Assets {
				if n.Assets[i].ID == id {
					n.Assets[i].Address = addr
				}
			}
			continue
		}
		n.Contracts[Contract(key)] = addr
	}
}

var builtin = []*Network{
	{
		Name:    "mantle-testnet",
		ChainID: 5001,
		Contracts: map[Contract]common.Address{
			DLT:           common.HexToAddress("0x3d0440A3eA85e120864ae609d1383006A1490786"),
			RMAVOracle:    common.HexToAddress("0x3D85963d01c981003d74A7d827b99E4cC62e048F"),
			RFRAOracle:    common.HexToAddress("0xf95dF9c518546485Ec354A2fE02093C55c3511fE"),
			ChainLink:     common.HexToAddress("0x9b6c38A2DFfc6332F7f385D69da5DdeaD78EfC93"),
			DeltaOpen:     common.HexToAddress("0x91eCdf26A91D72ec5cA44A496A422B8036A2B86B"),
			DeltaVerified: common.HexToAddress("0x58cF2a5325C36C891289b741FDf674A3396378A1"),
			RewardControl: common.HexToAddress("0x279e9476c77694419D777d6F43Cd9943e8d0243A"),
			RateModel:     common.HexToAddress("0x6A7b5f66D176C33141Af5262F28628e2F00bA945"),
			Insurance:     common.HexToAddress("0x1D1bCD24B0b41df49ee45D4A3896bc2f284aC4AE"),
			Faucet:        common.HexToAddress("0x5e9cE5FE11C531f4072C0120E2eF6d36EE6f62fd"),
		},
		Assets: defaultAssets(
			common.HexToAddress("0xad95cc76Ce5F9cc715a0093261d70dF72E61afAe"),
			common.HexToAddress("0xC766BD2b43EE71954a60585028518Aaf1fb5Ae3F"),
		),
	},
	{
		Name:      "localhost",
		ChainID:   1337,
		Contracts: map[Contract]common.Address{},
		Assets:    defaultAssets(common.Address{}, common.Address{}),
	},
}

func defaultAssets(rmav, rfra common.Address) []Asset {
	return []Asset{
		{ID: AssetRMAV, Address: rmav, Symbol: "rMAV", Name: "Maverick Token", Decimals: 18, LendAPY: 9.21, BorrowAPY: 14.36},
		{ID: AssetRFRA, Address: rfra, Symbol: "rFRA", Name: "Frack Token", Decimals: 18, LendAPY: 5.18, BorrowAPY: 9.29},
	}
}

// Lookup finds a built-in network by name or decimal chain ID and returns a copy.
func Lookup(nameOrID string) (*Network, error) {
	key := strings.TrimSpace(nameOrID)
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		return LookupChainID(id)
	}
	for _, n := range builtin {
		if strings.EqualFold(n.Name, key) {
			return n.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, nameOrID)
}

// LookupChainID finds a built-in network by chain ID and returns a copy.
func LookupChainID(chainID uint64) (*Network, error) {
	for _, n := range builtin {
		if n.ChainID == chainID {
			return n.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: chain %d", ErrUnknownNetwork, chainID)
}
