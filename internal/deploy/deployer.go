package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
)

// ErrMissingDeployment is returned when a required address has not been recorded.
var ErrMissingDeployment = errors.New("missing deployment")

// ContractDeployer creates one contract and waits until its code is live.
type ContractDeployer interface {
	Deploy(ctx context.Context, artifact Artifact, args ...interface{}) (common.Address, error)
}

// ChainDeployer deploys through a signing RPC backend.
type ChainDeployer struct {
	backend protocol.Backend
	opts    *bind.TransactOpts
	logger  *zap.Logger
}

func NewChainDeployer(backend protocol.Backend, opts *bind.TransactOpts, logger *zap.Logger) *ChainDeployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainDeployer{backend: backend, opts: opts, logger: logger}
}

func (d *ChainDeployer) Deploy(ctx context.Context, artifact Artifact, args ...interface{}) (common.Address, error) {
	opts := *d.opts
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(&opts, artifact.ABI, artifact.Bytecode, d.backend, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", artifact.ContractName, err)
	}
	d.logger.Info("deployment sent",
		zap.String("contract", artifact.ContractName),
		zap.String("address", addr.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
	)
	if _, err := bind.WaitDeployed(ctx, d.backend, tx); err != nil {
		return common.Address{}, fmt.Errorf("wait deploy %s: %w", artifact.ContractName, err)
	}
	return addr, nil
}

// ArtifactLoader returns the artifact for a contract name.
type ArtifactLoader func(contract string) (Artifact, error)

// DirLoader loads artifacts from a hardhat artifacts directory.
func DirLoader(dir string) ArtifactLoader {
	return func(contract string) (Artifact, error) {
		return LoadArtifact(dir, contract)
	}
}

// Runner executes the phase one plan, recording each address as soon as it
// is deployed.
type Runner struct {
	deployer ContractDeployer
	load     ArtifactLoader
	path     string
	logger   *zap.Logger
}

func NewRunner(deployer ContractDeployer, load ArtifactLoader, path string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{deployer: deployer, load: load, path: path, logger: logger}
}

// Run deploys every step not already present in the deployments file.
func (r *Runner) Run(ctx context.Context, plan []Step) (registry.Deployments, error) {
	recorded, found, err := registry.LoadDeployments(r.path)
	if err != nil {
		return nil, err
	}
	if found {
		r.logger.Info("resuming deployment", zap.String("path", r.path), zap.Strings("recorded", recorded.Names()))
	}

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		if addr, ok := recorded[string(step.Name)]; ok && !zeroAddress(addr) {
			r.logger.Info("skip deployed", zap.String("name", string(step.Name)), zap.String("address", addr.Hex()))
			continue
		}

		artifact, err := r.load(step.Artifact)
		if err != nil {
			return recorded, err
		}
		args, err := resolveArgs(step, recorded, artifact.ABI)
		if err != nil {
			return recorded, err
		}
		addr, err := r.deployer.Deploy(ctx, artifact, args...)
		if err != nil {
			return recorded, fmt.Errorf("%s: %w", step.Name, err)
		}

		recorded[string(step.Name)] = addr
		if err := registry.SaveDeployments(r.path, recorded); err != nil {
			return recorded, err
		}
		r.logger.Info("deployed", zap.String("name", string(step.Name)), zap.String("address", addr.Hex()))
	}
	return recorded, nil
}
