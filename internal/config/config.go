package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DELTA"

// Store backends.
const (
	StoreFile     = "file"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Config holds configuration for the client commands (pools, session, tx, watch).
type Config struct {
	RPCURL      string
	Network     string
	Deployments string
	Assets      []string

	Store     string
	StorePath string
	PGDSN     string
	History   string

	Account    string
	PrivateKey string
	Keystore   string
	Passphrase string

	ApprovalBuffer int64
	Concurrency    int
	MaxRetries     int
	RetryBackoff   time.Duration
	Timeout        time.Duration
	Interval       time.Duration
	MetricsAddr    string
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()
	v.SetDefault("network", "mantle-testnet")
	v.SetDefault("store", StoreFile)
	v.SetDefault("approval-buffer", int64(2))
	v.SetDefault("concurrency", 4)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("log-level", "info")

	if err := readConfig(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		Network:        v.GetString("network"),
		Deployments:    v.GetString("deployments"),
		Assets:         getStringSlice(v, "assets"),
		Store:          strings.ToLower(v.GetString("store")),
		StorePath:      v.GetString("store-path"),
		PGDSN:          v.GetString("pg-dsn"),
		History:        v.GetString("history"),
		Account:        v.GetString("account"),
		PrivateKey:     v.GetString("private-key"),
		Keystore:       v.GetString("keystore"),
		Passphrase:     v.GetString("passphrase"),
		ApprovalBuffer: v.GetInt64("approval-buffer"),
		Concurrency:    v.GetInt("concurrency"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		Timeout:        v.GetDuration("timeout"),
		Interval:       v.GetDuration("interval"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
	}

	if cfg.StorePath == "" {
		switch cfg.Store {
		case StoreBolt:
			cfg.StorePath = "./data/delta.db"
		default:
			cfg.StorePath = "./data/delta-state.json"
		}
	}
	return cfg, nil
}

// Validate checks the fields every client command relies on.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreBolt:
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("--pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.ApprovalBuffer < 0 {
		return fmt.Errorf("--approval-buffer must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("--concurrency must be > 0")
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func readConfig(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
