package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/registry"
)

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the locally stored account selection",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the session wallet, pool or token",
		RunE:  runSessionSet,
	}
	addStoreFlags(setCmd.Flags())
	addLogFlags(setCmd.Flags())
	setCmd.Flags().String("network", "mantle-testnet", "network name or chain id")
	setCmd.Flags().String("deployments", "", "deployments JSON overriding built-in addresses")
	setCmd.Flags().String("account", "", "wallet address")
	setCmd.Flags().String("pool", "", "selected pool asset")
	setCmd.Flags().String("token", "", "selected token asset")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the session",
		RunE:  runSessionShow,
	}
	addStoreFlags(showCmd.Flags())
	addLogFlags(showCmd.Flags())

	sessionCmd.AddCommand(setCmd, showCmd)
	return sessionCmd
}

func runSessionSet(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.commandContext()
	defer cancel()

	if err := a.offlineNetwork(); err != nil {
		return err
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}

	session, err := a.store.LoadSession(ctx)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("account") {
		addr, err := registry.ParseAddress(a.cfg.Account)
		if err != nil {
			return err
		}
		if err := rememberAccount(ctx, a.store, addr); err != nil {
			return err
		}
		if session, err = a.store.LoadSession(ctx); err != nil {
			return err
		}
	}
	if pool, _ := cmd.Flags().GetString("pool"); pool != "" {
		asset, err := a.network.ResolveAsset(pool)
		if err != nil {
			return err
		}
		session.SelectedPool = string(asset.ID)
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		asset, err := a.network.ResolveAsset(token)
		if err != nil {
			return err
		}
		session.SelectedToken = string(asset.ID)
	}

	if err := a.store.SaveSession(ctx, session); err != nil {
		return err
	}
	a.logger.Info("session updated",
		zap.String("wallet", session.WalletAddress),
		zap.String("pool", session.SelectedPool),
		zap.String("token", session.SelectedToken),
	)
	return printJSON(cmd, session)
}

func runSessionShow(cmd *cobra.Command, _ []string) error {
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
	session, err := a.store.LoadSession(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, session)
}
