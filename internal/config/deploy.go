package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// DeployConfig holds configuration for the deploy commands.
type DeployConfig struct {
	RPCURL     string
	Network    string
	Artifacts  string
	OutDir     string
	PrivateKey string
	Keystore   string
	Passphrase string
	Timeout    time.Duration
	LogLevel   string
}

// LoadDeploy merges config file, environment variables, and flags into DeployConfig.
func LoadDeploy(cfgFile string, flags *pflag.FlagSet) (DeployConfig, error) {
	v := newViper()
	v.SetDefault("artifacts", "./artifacts")
	v.SetDefault("out-dir", "./deployments")
	v.SetDefault("timeout", 10*time.Minute)
	v.SetDefault("log-level", "info")

	if err := readConfig(v, cfgFile, flags); err != nil {
		return DeployConfig{}, err
	}

	cfg := DeployConfig{
		RPCURL:     v.GetString("rpc"),
		Network:    v.GetString("network"),
		Artifacts:  v.GetString("artifacts"),
		OutDir:     v.GetString("out-dir"),
		PrivateKey: v.GetString("private-key"),
		Keystore:   v.GetString("keystore"),
		Passphrase: v.GetString("passphrase"),
		Timeout:    v.GetDuration("timeout"),
		LogLevel:   v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return DeployConfig{}, fmt.Errorf("--rpc is required")
	}
	return cfg, nil
}
