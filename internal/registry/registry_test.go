package registry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestResolveKnownAssets(t *testing.T) {
	network, err := Lookup("mantle-testnet")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	rmav, err := network.ResolveAsset("rMAV")
	if err != nil {
		t.Fatalf("resolve rMAV: %v", err)
	}
	rfra, err := network.ResolveAsset("rFRA")
	if err != nil {
		t.Fatalf("resolve rFRA: %v", err)
	}

	if rmav.Address != common.HexToAddress("0xad95cc76Ce5F9cc715a0093261d70dF72E61afAe") {
		t.Fatalf("rMAV address mismatch: %s", rmav.Address.Hex())
	}
	if rfra.Address != common.HexToAddress("0xC766BD2b43EE71954a60585028518Aaf1fb5Ae3F") {
		t.Fatalf("rFRA address mismatch: %s", rfra.Address.Hex())
	}
	if rmav.Address == rfra.Address {
		t.Fatalf("assets must resolve to distinct addresses")
	}
}

func TestResolveUnknownAsset(t *testing.T) {
	network, err := Lookup("5001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	for _, input := range []string{"", "DAI", "rMAVX", "0xad95cc76Ce5F9cc715a0093261d70dF72E61afAe"} {
		if _, err := network.ResolveAsset(input); !errors.Is(err, ErrUnknownAsset) {
			t.Fatalf("expected ErrUnknownAsset for %q, got %v", input, err)
		}
	}
}

func TestLookupUnknownNetwork(t *testing.T) {
	if _, err := Lookup("mainnet"); !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
	if _, err := LookupChainID(42); !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	first, err := Lookup("mantle-testnet")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	first.Contracts[DeltaOpen] = common.Address{}
	first.Assets[0].Address = common.Address{}

	second, err := Lookup("mantle-testnet")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := second.Contract(DeltaOpen); err != nil {
		t.Fatalf("built-in registry was mutated: %v", err)
	}
	if second.Assets[0].Address == (common.Address{}) {
		t.Fatalf("built-in assets were mutated")
	}
}

func TestApplyDeployments(t *testing.T) {
	network, err := Lookup("localhost")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := network.Contract(DeltaOpen); !errors.Is(err, ErrMissingContract) {
		t.Fatalf("expected missing contract, got %v", err)
	}

	open := common.HexToAddress("0x1111111111111111111111111111111111111111")
	rmav := common.HexToAddress("0x2222222222222222222222222222222222222222")
	network.Apply(Deployments{"DELTA_OPEN": open, "rMAV": rmav})

	got, err := network.Contract(DeltaOpen)
	if err != nil || got != open {
		t.Fatalf("delta open mismatch: %s %v", got.Hex(), err)
	}
	asset, err := network.Asset(AssetRMAV)
	if err != nil || asset.Address != rmav {
		t.Fatalf("rMAV override mismatch: %+v %v", asset, err)
	}
}

func TestDeploymentsFileRoundTrip(t *testing.T) {
	path := DeploymentsFilename(filepath.Join(t.TempDir(), "addresses"), 5)
	if filepath.Base(path) != "5-delta-deployments.json" {
		t.Fatalf("unexpected file name: %s", path)
	}

	if _, ok, err := LoadDeployments(path); err != nil || ok {
		t.Fatalf("missing file should load empty: ok=%v err=%v", ok, err)
	}

	want := Deployments{
		"DLT":       common.HexToAddress("0x3d0440A3eA85e120864ae609d1383006A1490786"),
		"CHAINLINK": common.HexToAddress("0x9b6c38A2DFfc6332F7f385D69da5DdeaD78EfC93"),
	}
	if err := SaveDeployments(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := LoadDeployments(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got["DLT"] != want["DLT"] || got["CHAINLINK"] != want["CHAINLINK"] {
		t.Fatalf("deployments mismatch: %+v", got)
	}
	if names := got.Names(); names[0] != "CHAINLINK" || names[1] != "DLT" {
		t.Fatalf("names not sorted: %v", names)
	}
}
