package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// chdir keeps a stray ./config.* from leaking into the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func clientFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.String("store", "", "")
	flags.StringSlice("assets", nil, "")
	flags.Int64("approval-buffer", 0, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network != "mantle-testnet" || cfg.Store != StoreFile {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ApprovalBuffer != 2 || cfg.Concurrency != 4 {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if cfg.StorePath != "./data/delta-state.json" {
		t.Fatalf("unexpected store path %s", cfg.StorePath)
	}
	if cfg.Interval != 30*time.Second {
		t.Fatalf("unexpected interval %s", cfg.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DELTA_RPC", "http://env:8545")
	t.Setenv("DELTA_STORE", "bolt")

	flags := clientFlags()
	if err := flags.Parse([]string{"--assets", "rMAV, rFRA", "--approval-buffer", "5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://env:8545" {
		t.Fatalf("expected env rpc, got %s", cfg.RPCURL)
	}
	if cfg.Store != StoreBolt || cfg.StorePath != "./data/delta.db" {
		t.Fatalf("unexpected store: %s %s", cfg.Store, cfg.StorePath)
	}
	if len(cfg.Assets) != 2 || cfg.Assets[0] != "rMAV" || cfg.Assets[1] != "rFRA" {
		t.Fatalf("unexpected assets: %v", cfg.Assets)
	}
	if cfg.ApprovalBuffer != 5 {
		t.Fatalf("expected buffer 5, got %d", cfg.ApprovalBuffer)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delta.yaml")
	body := "rpc: http://file:8545\nstore: postgres\npg-dsn: postgres://localhost/delta\nconcurrency: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://file:8545" || cfg.Store != StorePostgres || cfg.Concurrency != 8 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	cfg := Config{Store: "redis", Concurrency: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown store")
	}
	cfg = Config{Store: StorePostgres, Concurrency: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestLoadDeployRequiresRPC(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadDeploy("", nil); err == nil {
		t.Fatalf("expected missing rpc error")
	}
	t.Setenv("DELTA_RPC", "http://localhost:8545")
	cfg, err := LoadDeploy("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Artifacts != "./artifacts" || cfg.OutDir != "./deployments" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
