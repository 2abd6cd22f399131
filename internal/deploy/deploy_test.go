package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"deltaLens/internal/model"
	"deltaLens/internal/registry"
)

var constructors = map[string]string{
	"MockERC20":        `[{"type":"constructor","inputs":[{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"decimals","type":"uint8"}]}]`,
	"MockAggregatorV3": `[{"type":"constructor","inputs":[{"name":"decimals","type":"uint8"}]}]`,
	"ChainLink":        `[{"type":"constructor","inputs":[]}]`,
	"DeltaOpen":        `[{"type":"constructor","inputs":[{"name":"oracle","type":"address"},{"name":"ratio","type":"uint256"}]}]`,
	"DeltaVerified":    `[{"type":"constructor","inputs":[{"name":"oracle","type":"address"},{"name":"ratio","type":"uint256"}]}]`,
	"RewardControl":    `[{"type":"constructor","inputs":[{"name":"verified","type":"address"},{"name":"open","type":"address"},{"name":"dlt","type":"address"}]}]`,
	"RateModel": `[{"type":"constructor","inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"},{"name":"c","type":"uint256"},` +
		`{"name":"d","type":"uint256"},{"name":"e","type":"uint256"},{"name":"f","type":"uint256"}]}]`,
}

func writeArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, abiJSON := range constructors {
		body := fmt.Sprintf(`{"contractName":%q,"abi":%s,"bytecode":"0x6080604052"}`, name, abiJSON)
		if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}
	return dir
}

type deployCall struct {
	contract string
	args     []interface{}
}

type fakeDeployer struct {
	calls  []deployCall
	next   int64
	failAt int
}

func (f *fakeDeployer) Deploy(ctx context.Context, artifact Artifact, args ...interface{}) (common.Address, error) {
	if f.failAt > 0 && len(f.calls)+1 == f.failAt {
		return common.Address{}, errors.New("out of gas")
	}
	if _, err := artifact.ABI.Pack("", args...); err != nil {
		return common.Address{}, fmt.Errorf("pack constructor %s: %w", artifact.ContractName, err)
	}
	f.calls = append(f.calls, deployCall{contract: artifact.ContractName, args: args})
	f.next++
	return common.BigToAddress(big.NewInt(0x1000 + f.next)), nil
}

func TestRunnerResumesFromPartialFile(t *testing.T) {
	ctx := context.Background()
	artifacts := writeArtifacts(t)
	path := registry.DeploymentsFilename(t.TempDir(), 1337)

	failing := &fakeDeployer{failAt: 4}
	if _, err := NewRunner(failing, DirLoader(artifacts), path, nil).Run(ctx, DefaultPlan()); err == nil {
		t.Fatalf("expected failure on fourth deployment")
	}

	partial, found, err := registry.LoadDeployments(path)
	if err != nil || !found {
		t.Fatalf("expected partial deployments file, found=%v err=%v", found, err)
	}
	if len(partial) != 3 {
		t.Fatalf("expected 3 recorded deployments, got %v", partial.Names())
	}

	resumed := &fakeDeployer{next: 100}
	deployments, err := NewRunner(resumed, DirLoader(artifacts), path, nil).Run(ctx, DefaultPlan())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(resumed.calls) != 5 {
		t.Fatalf("expected 5 remaining deployments, got %d", len(resumed.calls))
	}
	if resumed.calls[0].contract != "ChainLink" {
		t.Fatalf("expected resume at ChainLink, got %s", resumed.calls[0].contract)
	}
	if len(deployments) != 8 {
		t.Fatalf("expected 8 deployments, got %v", deployments.Names())
	}
	if deployments["DLT"] != partial["DLT"] {
		t.Fatalf("recorded address was replaced")
	}

	open := resumed.calls[1]
	if open.contract != "DeltaOpen" || open.args[0] != deployments["CHAINLINK"] {
		t.Fatalf("DeltaOpen not wired to ChainLink: %+v", open)
	}
	reward := resumed.calls[3]
	if reward.args[0] != deployments["DELTA_VERIFIED"] || reward.args[1] != deployments["DELTA_OPEN"] || reward.args[2] != deployments["DLT"] {
		t.Fatalf("unexpected RewardControl args: %+v", reward.args)
	}

	onDisk, _, err := registry.LoadDeployments(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(onDisk) != 8 {
		t.Fatalf("expected 8 names on disk, got %v", onDisk.Names())
	}
}

func TestResolveArgsNarrowsIntegers(t *testing.T) {
	artifact, err := ParseArtifact([]byte(`{"contractName":"MockERC20","abi":` + constructors["MockERC20"] + `,"bytecode":"0x60"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	args, err := resolveArgs(DefaultPlan()[0], registry.Deployments{}, artifact.ABI)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v, ok := args[2].(uint8); !ok || v != 18 {
		t.Fatalf("expected uint8 18, got %#v", args[2])
	}
}

func TestResolveArgsMissingRef(t *testing.T) {
	artifact, err := ParseArtifact([]byte(`{"contractName":"DeltaOpen","abi":` + constructors["DeltaOpen"] + `,"bytecode":"0x60"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	step := DefaultPlan()[4]
	if _, err := resolveArgs(step, registry.Deployments{}, artifact.ABI); !errors.Is(err, ErrMissingDeployment) {
		t.Fatalf("expected ErrMissingDeployment, got %v", err)
	}
}

type fakeSender struct {
	methods []string
	targets []common.Address
	failAt  int
}

func (f *fakeSender) Send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (model.Receipt, error) {
	if _, err := parsed.Pack(method, args...); err != nil {
		return model.Receipt{}, err
	}
	if f.failAt > 0 && len(f.methods)+1 == f.failAt {
		return model.Receipt{Method: method}, errors.New("reverted")
	}
	f.methods = append(f.methods, method)
	f.targets = append(f.targets, to)
	return model.Receipt{Method: method, Status: 1}, nil
}

func wiredNetwork(t *testing.T) *registry.Network {
	t.Helper()
	network, err := registry.Lookup("localhost")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	d := registry.Deployments{}
	for i, name := range []string{"DLT", "rMAV_ORACLE", "rFRA_ORACLE", "CHAINLINK", "DELTA_OPEN", "DELTA_VERIFIED", "REWARD_CONTROL", "RATE_MODEL", "rMAV", "rFRA"} {
		d[name] = common.BigToAddress(big.NewInt(int64(0x100 + i)))
	}
	network.Apply(d)
	return network
}

func TestWireOrderAndTargets(t *testing.T) {
	network := wiredNetwork(t)
	calls, err := WirePlan(network)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	sender := &fakeSender{}
	receipts, err := Wire(context.Background(), sender, calls, nil)
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	if len(receipts) != 6 {
		t.Fatalf("expected 6 receipts, got %d", len(receipts))
	}

	want := []string{"setRewardControlAddress", "setRewardControlAddress", "addAsset", "addAsset", "_supportMarket", "_supportMarket"}
	for i, method := range want {
		if sender.methods[i] != method {
			t.Fatalf("call %d: expected %s, got %s", i, method, sender.methods[i])
		}
	}
	verified, _ := network.Contract(registry.DeltaVerified)
	if sender.targets[1] != verified {
		t.Fatalf("second call should target DeltaVerified, got %s", sender.targets[1].Hex())
	}
}

func TestWireStopsAtFirstFailure(t *testing.T) {
	calls, err := WirePlan(wiredNetwork(t))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	sender := &fakeSender{failAt: 3}
	receipts, err := Wire(context.Background(), sender, calls, nil)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if len(receipts) != 2 || len(sender.methods) != 2 {
		t.Fatalf("expected to stop after 2 calls, got %d receipts", len(receipts))
	}
}

func TestWirePlanMissingDeployment(t *testing.T) {
	network, err := registry.Lookup("localhost")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := WirePlan(network); !errors.Is(err, ErrMissingDeployment) {
		t.Fatalf("expected ErrMissingDeployment, got %v", err)
	}
}
