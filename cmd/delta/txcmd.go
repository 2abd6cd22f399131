package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/chain"
	"deltaLens/internal/metrics"
	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
	"deltaLens/internal/tx"
)

type amountOp func(s *tx.Submitter, ctx context.Context, asset registry.Asset, amount string) (tx.Result, error)

type assetOp func(s *tx.Submitter, ctx context.Context, asset registry.Asset) (tx.Result, error)

func newTxCmds() []*cobra.Command {
	return []*cobra.Command{
		newAmountCmd("supply", "Lend an asset to the protocol", (*tx.Submitter).Supply),
		newAmountCmd("borrow", "Borrow an asset against supplied collateral", (*tx.Submitter).Borrow),
		newAmountCmd("withdraw", "Withdraw a supplied asset", (*tx.Submitter).Withdraw),
		newAmountCmd("repay", "Repay a borrowed asset", (*tx.Submitter).RepayBorrow),
		newAmountCmd("split-risk", "Deposit an asset into the insurance tranches", (*tx.Submitter).SplitRisk),
		newAssetCmd("invest", "Invest the insurance position of an asset", (*tx.Submitter).Invest),
		newAssetCmd("divest", "Divest the insurance position of an asset", (*tx.Submitter).Divest),
		newAssetCmd("claim", "Claim both insurance tranches of an asset", (*tx.Submitter).ClaimAll),
	}
}

func addTxFlags(cmd *cobra.Command) {
	addRPCFlags(cmd.Flags())
	addSignerFlags(cmd.Flags())
	addStoreFlags(cmd.Flags())
	addLogFlags(cmd.Flags())
	cmd.Flags().Int64("approval-buffer", tx.DefaultApprovalBuffer, "whole units approved on top of the amount")
	cmd.Flags().Bool("refresh", false, "refresh the pool snapshot after the transaction")
	cmd.Flags().Int("concurrency", 4, "maximum concurrent asset reads for --refresh")
}

func newAmountCmd(use, short string, op amountOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <asset> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTx(cmd, args[0], func(ctx context.Context, s *tx.Submitter, asset registry.Asset) (tx.Result, error) {
				return op(s, ctx, asset, args[1])
			})
		},
	}
	addTxFlags(cmd)
	return cmd
}

func newAssetCmd(use, short string, op assetOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <asset>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTx(cmd, args[0], func(ctx context.Context, s *tx.Submitter, asset registry.Asset) (tx.Result, error) {
				return op(s, ctx, asset)
			})
		},
	}
	addTxFlags(cmd)
	return cmd
}

func runTx(cmd *cobra.Command, assetInput string, do func(context.Context, *tx.Submitter, registry.Asset) (tx.Result, error)) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.commandContext()
	defer cancel()

	if err := a.connect(ctx); err != nil {
		return err
	}
	asset, err := a.network.ResolveAsset(assetInput)
	if err != nil {
		return err
	}

	key, err := chain.LoadKey(chain.SignerConfig{
		PrivateKey: a.cfg.PrivateKey,
		Keystore:   a.cfg.Keystore,
		Passphrase: a.cfg.Passphrase,
	})
	if err != nil {
		return err
	}
	opts, err := chain.NewTransactOpts(key, a.network.ChainID)
	if err != nil {
		return err
	}

	reader, err := a.reader()
	if err != nil {
		return err
	}
	lending, err := a.network.Contract(registry.DeltaOpen)
	if err != nil {
		return err
	}
	insurance, _ := a.network.Contract(registry.Insurance)

	m := metrics.Default()
	buffer := a.cfg.ApprovalBuffer
	submitter := tx.NewSubmitter(tx.Config{
		Lending:        lending,
		Insurance:      insurance,
		ApprovalBuffer: &buffer,
		Metrics:        m,
	}, reader, protocol.NewWriter(a.client, opts, a.logger), a.logger)

	a.logger.Info("transaction start",
		zap.String("command", cmd.Name()),
		zap.String("asset", asset.Symbol),
		zap.String("from", opts.From.Hex()),
	)
	result, err := do(ctx, submitter, asset)
	if err != nil {
		if result.Approval != nil || result.Receipt.TxHash != "" {
			_ = printJSON(cmd, result)
		}
		return err
	}

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		if err := a.openStore(ctx); err != nil {
			return err
		}
		a.cfg.Account = opts.From.Hex()
		if _, err := refreshPools(ctx, a, m); err != nil {
			return err
		}
	}
	return printJSON(cmd, result)
}
