package proxyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("rpc_url: https://example.invalid/rpc\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCURL != "https://example.invalid/rpc" {
		t.Fatalf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.BlockWaitLimit != DefaultBlockWaitLimit {
		t.Fatalf("BlockWaitLimit = %d, want %d", cfg.BlockWaitLimit, DefaultBlockWaitLimit)
	}
	if cfg.ConfirmPollIntervalDuration() != DefaultConfirmPollInterval {
		t.Fatalf("ConfirmPollInterval = %v, want %v", cfg.ConfirmPollIntervalDuration(), DefaultConfirmPollInterval)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "rpc_url: https://example.invalid/rpc\nblock_wait_limit: 5\nconfirm_poll_interval: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BlockWaitLimit != 5 {
		t.Fatalf("BlockWaitLimit = %d, want 5", cfg.BlockWaitLimit)
	}
	if cfg.ConfirmPollIntervalDuration() != 30*time.Second {
		t.Fatalf("ConfirmPollInterval = %v, want 30s", cfg.ConfirmPollIntervalDuration())
	}
}

func TestLoadMissingRPCURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("block_wait_limit: 5\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("want error for missing rpc_url, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing file, got nil")
	}
}
