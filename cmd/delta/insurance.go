package main

import (
	"math/big"

	"github.com/spf13/cobra"

	"deltaLens/internal/model"
	"deltaLens/internal/registry"
	"deltaLens/internal/units"
)

// insuranceDecimals is the precision of the insurance tranche balances.
const insuranceDecimals = 18

func newInsuranceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insurance",
		Short: "Print the insurance tranche balances of an account",
		RunE:  runInsurance,
	}
	addRPCFlags(cmd.Flags())
	addStoreFlags(cmd.Flags())
	addLogFlags(cmd.Flags())
	cmd.Flags().String("account", "", "account address (defaults to the session wallet)")
	return cmd
}

func runInsurance(cmd *cobra.Command, _ []string) error {
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
	if _, err := a.network.Contract(registry.Insurance); err != nil {
		return err
	}
	account, err := a.account(ctx)
	if err != nil {
		return err
	}
	reader, err := a.reader()
	if err != nil {
		return err
	}

	safe, risky, err := reader.InsuranceBalances(ctx, account)
	if err != nil {
		return err
	}
	return printJSON(cmd, insuranceSummary(account.Hex(), safe, risky))
}

func insuranceSummary(account string, safe, risky *big.Int) model.InsuranceBalances {
	total := new(big.Int).Add(safe, risky)
	return model.InsuranceBalances{
		Account: account,
		Safe:    units.FromBaseUnits(safe, insuranceDecimals),
		Risky:   units.FromBaseUnits(risky, insuranceDecimals),
		Total:   units.FromBaseUnits(total, insuranceDecimals),
	}
}
