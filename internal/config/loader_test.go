package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "discover"

[gamma]
page_size = 50

[discovery]
series_slug = "btc-up-or-down-5m"
window_start_local = "2024-01-01 00:00"
window_end_local = "2024-01-01 00:05"
timezone = "UTC"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "discover" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.Gamma.PageSize != 50 {
		t.Fatalf("page_size = %d", cfg.Gamma.PageSize)
	}
	// Untouched fields keep their defaults.
	if cfg.Gamma.Host != "https://gamma-api.polymarket.com" {
		t.Fatalf("gamma host = %q", cfg.Gamma.Host)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
mode = "discover"

[gamma]
host = "https://file.example.com"
`)

	t.Setenv("SLOTCLAIM_GAMMA_HOST", "https://env.example.com")
	t.Setenv("SLOTCLAIM_GAMMA_MAX_RECORDS", "123")
	t.Setenv("SLOTCLAIM_CHAIN_DRY_RUN", "false")
	t.Setenv("SLOTCLAIM_REDEEM_INTERVAL", "30m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gamma.Host != "https://env.example.com" {
		t.Fatalf("gamma host = %q, env override lost", cfg.Gamma.Host)
	}
	if cfg.Gamma.MaxRecords != 123 {
		t.Fatalf("max_records = %d", cfg.Gamma.MaxRecords)
	}
	if cfg.Chain.DryRun {
		t.Fatal("dry_run should be overridden to false")
	}
	if cfg.Redeem.Interval.Minutes() != 30 {
		t.Fatalf("interval = %s", cfg.Redeem.Interval)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "redeem"
	// No RPC URL, no wallet credentials, missing window for window_end anchor.
	cfg.Discovery.WindowStartLocal = ""
	cfg.Discovery.WindowEndLocal = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"rpc_url", "private_key", "window_start_local"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %q:\n%v", want, err)
		}
	}
}

func TestSlugPrefix(t *testing.T) {
	cfg := Defaults()
	if got := cfg.SlugPrefix(); got != "btc-updown-5m-" {
		t.Fatalf("derived prefix = %q", got)
	}
	cfg.Redeem.SlugPrefix = "eth-updown-15m-"
	if got := cfg.SlugPrefix(); got != "eth-updown-15m-" {
		t.Fatalf("explicit prefix = %q", got)
	}
}
