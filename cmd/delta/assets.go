package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deltaLens/internal/protocol"
	"deltaLens/internal/registry"
)

type assetReport struct {
	registry.Asset
	Verified bool   `json:"verified,omitempty"`
	Mismatch string `json:"mismatch,omitempty"`
}

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List registered assets, optionally checking them on chain",
		RunE:  runAssets,
	}
	addRPCFlags(cmd.Flags())
	addLogFlags(cmd.Flags())
	cmd.Flags().Bool("verify", false, "compare registry decimals and symbol with the token contracts")
	return cmd
}

func runAssets(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	verify, _ := cmd.Flags().GetBool("verify")
	if !verify {
		if err := a.offlineNetwork(); err != nil {
			return err
		}
		return printJSON(cmd, a.network.Assets)
	}

	ctx, cancel := a.commandContext()
	defer cancel()

	if err := a.connect(ctx); err != nil {
		return err
	}

	cache := protocol.NewTokenMetaCache()
	reports := make([]assetReport, 0, len(a.network.Assets))
	var mismatches int
	for _, asset := range a.network.Assets {
		meta, err := protocol.CachedTokenMeta(ctx, a.client, cache, asset.Address, a.logger)
		if err != nil {
			return fmt.Errorf("token meta %s: %w", asset.Symbol, err)
		}
		report := assetReport{Asset: asset, Verified: true}
		switch {
		case meta.Decimals != asset.Decimals:
			report.Mismatch = fmt.Sprintf("decimals %d on chain", meta.Decimals)
		case meta.Symbol != "" && !strings.EqualFold(meta.Symbol, asset.Symbol):
			report.Mismatch = fmt.Sprintf("symbol %q on chain", meta.Symbol)
		}
		if report.Mismatch != "" {
			report.Verified = false
			mismatches++
			a.logger.Warn("asset mismatch", zap.String("asset", asset.Symbol), zap.String("detail", report.Mismatch))
		}
		reports = append(reports, report)
	}

	if err := printJSON(cmd, reports); err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d asset(s) do not match the chain", mismatches)
	}
	return nil
}
