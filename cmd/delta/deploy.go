package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"deltaLens/internal/chain"
	"deltaLens/internal/config"
	"deltaLens/internal/deploy"
	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
)

func newDeployCmd() *cobra.Command {
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Bootstrap a protocol deployment",
	}

	contractsCmd := &cobra.Command{
		Use:   "contracts",
		Short: "Deploy the protocol contracts, resuming from the deployments file",
		RunE:  runDeployContracts,
	}
	addDeployFlags(contractsCmd.Flags())
	contractsCmd.Flags().String("artifacts", "./artifacts", "directory of <Contract>.json build artifacts")

	wireCmd := &cobra.Command{
		Use:   "wire",
		Short: "Configure reward control, oracles and markets on deployed contracts",
		RunE:  runDeployWire,
	}
	addDeployFlags(wireCmd.Flags())
	wireCmd.Flags().String("network", "", "network name or chain id (default: from the node)")

	deployCmd.AddCommand(contractsCmd, wireCmd)
	return deployCmd
}

func addDeployFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "JSON-RPC URL")
	flags.String("out-dir", "./deployments", "directory of <chainId>-delta-deployments.json")
	flags.Duration("timeout", 10*time.Minute, "overall timeout")
	addSignerFlags(flags)
	addLogFlags(flags)
}

type deploySession struct {
	cfg     config.DeployConfig
	logger  *zap.Logger
	client  *chain.Client
	chainID uint64
	writer  *protocol.Writer
	deploy  *deploy.ChainDeployer
}

func openDeploySession(cmd *cobra.Command) (*deploySession, context.Context, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDeploy(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cancel := context.CancelFunc(func() {})
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	cleanup := func() {
		cancel()
		stop()
		_ = logger.Sync()
	}

	fail := func(err error) (*deploySession, context.Context, func(), error) {
		cleanup()
		return nil, nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fail(fmt.Errorf("connect rpc: %w", err))
	}
	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return fail(fmt.Errorf("get chain id: %w", err))
	}
	key, err := chain.LoadKey(chain.SignerConfig{PrivateKey: cfg.PrivateKey, Keystore: cfg.Keystore, Passphrase: cfg.Passphrase})
	if err != nil {
		client.Close()
		return fail(err)
	}
	opts, err := chain.NewTransactOpts(key, chainID)
	if err != nil {
		client.Close()
		return fail(err)
	}

	logger.Info("deployer ready",
		zap.Uint64("chain_id", chainID),
		zap.String("from", opts.From.Hex()),
	)

	session := &deploySession{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		chainID: chainID,
		writer:  protocol.NewWriter(client, opts, logger),
		deploy:  deploy.NewChainDeployer(client, opts, logger),
	}
	return session, ctx, func() {
		client.Close()
		cleanup()
	}, nil
}

func runDeployContracts(cmd *cobra.Command, _ []string) error {
	s, ctx, done, err := openDeploySession(cmd)
	if err != nil {
		return err
	}
	defer done()

	path := registry.DeploymentsFilename(s.cfg.OutDir, s.chainID)
	s.logger.Info("deploy contracts start",
		zap.String("artifacts", s.cfg.Artifacts),
		zap.String("deployments", path),
	)

	runner := deploy.NewRunner(s.deploy, deploy.DirLoader(s.cfg.Artifacts), path, s.logger)
	deployments, err := runner.Run(ctx, deploy.DefaultPlan())
	if err != nil {
		return err
	}
	return printJSON(cmd, deployments)
}

func runDeployWire(cmd *cobra.Command, _ []string) error {
	s, ctx, done, err := openDeploySession(cmd)
	if err != nil {
		return err
	}
	defer done()

	path := registry.DeploymentsFilename(s.cfg.OutDir, s.chainID)
	network, err := resolveNetwork(s.cfg.Network, s.chainID, path)
	if err != nil {
		return err
	}

	calls, err := deploy.WirePlan(network)
	if err != nil {
		return err
	}
	s.logger.Info("deploy wire start", zap.String("deployments", path), zap.Int("calls", len(calls)))

	receipts, err := deploy.Wire(ctx, s.writer, calls, s.logger)
	if printErr := printJSON(cmd, receipts); printErr != nil && err == nil {
		err = printErr
	}
	return err
}
