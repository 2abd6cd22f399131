package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "delta",
		Short:        "Delta protocol client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(
		newPoolsCmd(),
		newSessionCmd(),
		newAssetsCmd(),
		newInsuranceCmd(),
		newWatchCmd(),
		newDeployCmd(),
	)
	root.AddCommand(newTxCmds()...)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRPCFlags registers the flags shared by every command that talks to a node.
func addRPCFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "JSON-RPC URL")
	flags.String("network", "mantle-testnet", "network name or chain id")
	flags.String("deployments", "", "deployments JSON overriding built-in addresses")
	flags.Int("max-retries", 3, "maximum retry attempts for reads")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Duration("timeout", 2*time.Minute, "per-command timeout")
}

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("store", "file", "state backend (file, bolt, postgres)")
	flags.String("store-path", "", "state file or bolt database path")
	flags.String("pg-dsn", "", "Postgres DSN for the postgres store")
	flags.String("history", "", "optional JSONL file receiving every stored snapshot")
}

func addSignerFlags(flags *pflag.FlagSet) {
	flags.String("private-key", "", "hex private key")
	flags.String("keystore", "", "encrypted keystore file")
	flags.String("passphrase", "", "keystore passphrase (prompted when empty)")
}

func addLogFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
