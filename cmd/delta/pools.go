package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/aggregate"
	"deltaLens/internal/metrics"
	"deltaLens/internal/model"
	"deltaLens/internal/storage"
)

func newPoolsCmd() *cobra.Command {
	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Aggregate and inspect per-asset positions",
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Read every asset position and store the pool snapshot",
		RunE:  runPoolsRefresh,
	}
	addRPCFlags(refreshCmd.Flags())
	addStoreFlags(refreshCmd.Flags())
	addLogFlags(refreshCmd.Flags())
	refreshCmd.Flags().String("account", "", "account address (defaults to the session wallet)")
	refreshCmd.Flags().StringSlice("assets", nil, "assets to aggregate, in order (default: all)")
	refreshCmd.Flags().Int("concurrency", 4, "maximum concurrent asset reads")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored pool snapshot for the session account",
		RunE:  runPoolsShow,
	}
	addStoreFlags(showCmd.Flags())
	addLogFlags(showCmd.Flags())
	showCmd.Flags().String("account", "", "account address (defaults to the session wallet)")
	showCmd.Flags().String("symbol", "", "only print the pool for this asset symbol")

	poolsCmd.AddCommand(refreshCmd, showCmd)
	return poolsCmd
}

func runPoolsRefresh(cmd *cobra.Command, _ []string) error {
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
	if err := a.openStore(ctx); err != nil {
		return err
	}

	snapshot, err := refreshPools(ctx, a, metrics.Default())
	if err != nil {
		return err
	}
	return printJSON(cmd, snapshot)
}

// refreshPools runs one aggregation pass for the resolved account and
// records it as the session wallet.
func refreshPools(ctx context.Context, a *app, m *metrics.Metrics) (model.PoolSnapshot, error) {
	account, err := a.account(ctx)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	assets, err := a.assets()
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	reader, err := a.reader()
	if err != nil {
		return model.PoolSnapshot{}, err
	}

	cfg := aggregate.Config{
		ChainID:     a.network.ChainID,
		Concurrency: a.cfg.Concurrency,
		Metrics:     m,
	}
	if a.cfg.History != "" {
		cfg.History = storage.NewJsonlHistory(a.cfg.History)
	}

	if err := rememberAccount(ctx, a.store, account); err != nil {
		return model.PoolSnapshot{}, err
	}

	a.logger.Info("pools refresh start",
		zap.String("network", a.network.Name),
		zap.String("account", account.Hex()),
		zap.Int("assets", len(assets)),
		zap.String("store", a.cfg.Store),
	)
	return aggregate.NewAggregator(cfg, reader, a.store, a.logger).Run(ctx, account, assets)
}

// rememberAccount stores account as the session wallet. Switching wallets
// clears the pool and token selection.
func rememberAccount(ctx context.Context, store storage.SessionStore, account common.Address) error {
	session, err := store.LoadSession(ctx)
	if err != nil {
		return err
	}
	if strings.EqualFold(session.WalletAddress, account.Hex()) {
		return nil
	}
	return store.SaveSession(ctx, model.Session{WalletAddress: account.Hex()})
}

func runPoolsShow(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.commandContext()
	defer cancel()

	if err := a.openStore(ctx); err != nil {
		return err
	}
	account, err := a.account(ctx)
	if err != nil {
		return err
	}
	pools, err := storage.PoolsFor(ctx, a.store, account.Hex())
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	if symbol == "" {
		return printJSON(cmd, pools)
	}
	pool, ok := model.FindPool(pools, symbol)
	if !ok {
		return fmt.Errorf("no pool for %s", symbol)
	}
	return printJSON(cmd, pool)
}
