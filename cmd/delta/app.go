package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/chain"
	"deltaLens/internal/config"
	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
	"deltaLens/internal/storage"
)

// app carries the dependencies one command invocation needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	network *registry.Network
	client  *chain.Client
	store   storage.Store
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// commandContext installs the signal handler and the configured timeout.
func (a *app) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if a.cfg.Timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// connect dials the RPC endpoint and resolves the network against its chain id.
func (a *app) connect(ctx context.Context) error {
	if a.cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, a.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("get chain id: %w", err)
	}

	network, err := resolveNetwork(a.cfg.Network, chainID, a.cfg.Deployments)
	if err != nil {
		client.Close()
		return err
	}
	a.client = client
	a.network = network
	a.logger.Debug("connected",
		zap.String("network", network.Name),
		zap.Uint64("chain_id", chainID),
	)
	return nil
}

// offlineNetwork resolves the network without dialing a node.
func (a *app) offlineNetwork() error {
	network, err := resolveNetwork(a.cfg.Network, 0, a.cfg.Deployments)
	if err != nil {
		return err
	}
	a.network = network
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	store, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
	if a.client != nil {
		a.client.Close()
	}
	_ = a.logger.Sync()
}

// reader returns a protocol reader whose calls retry on failure.
func (a *app) reader() (*protocol.Reader, error) {
	lending, err := a.network.Contract(registry.DeltaOpen)
	if err != nil {
		return nil, err
	}
	insurance, _ := a.network.Contract(registry.Insurance)
	caller := &chain.RetryCaller{
		Caller:     a.client,
		MaxRetries: a.cfg.MaxRetries,
		Backoff:    a.cfg.RetryBackoff,
		Logger:     a.logger,
	}
	return protocol.NewReader(caller, lending, insurance), nil
}

// assets returns the configured asset subset in order, or every registered asset.
func (a *app) assets() ([]registry.Asset, error) {
	if len(a.cfg.Assets) == 0 {
		return append([]registry.Asset(nil), a.network.Assets...), nil
	}
	out := make([]registry.Asset, 0, len(a.cfg.Assets))
	for _, input := range a.cfg.Assets {
		asset, err := a.network.ResolveAsset(input)
		if err != nil {
			return nil, err
		}
		out = append(out, asset)
	}
	return out, nil
}

// account picks the --account flag, falling back to the session wallet.
func (a *app) account(ctx context.Context) (common.Address, error) {
	input := a.cfg.Account
	if input == "" && a.store != nil {
		session, err := a.store.LoadSession(ctx)
		if err != nil {
			return common.Address{}, err
		}
		input = session.WalletAddress
	}
	if input == "" {
		return common.Address{}, fmt.Errorf("account is required (--account or session wallet)")
	}
	return registry.ParseAddress(input)
}

func resolveNetwork(nameOrID string, chainID uint64, deploymentsPath string) (*registry.Network, error) {
	var (
		network *registry.Network
		err     error
	)
	if strings.TrimSpace(nameOrID) != "" {
		network, err = registry.Lookup(nameOrID)
	} else {
		network, err = registry.LookupChainID(chainID)
	}
	if err != nil {
		return nil, err
	}
	if chainID != 0 && network.ChainID != chainID {
		return nil, fmt.Errorf("%w: %s expects chain %d, node reports %d", registry.ErrUnknownNetwork, network.Name, network.ChainID, chainID)
	}

	if deploymentsPath != "" {
		deployments, found, err := registry.LoadDeployments(deploymentsPath)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("deployments file not found: %s", deploymentsPath)
		}
		network.Apply(deployments)
	}
	return network, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
