package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SlippageBps != 50 || cfg.BreakerCooldown != 30*time.Minute || cfg.MEVLookback != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MEVWindow != 5*time.Second || cfg.RouteConcurrency != 8 || cfg.BreakerCacheSize != 1024 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.StateFile == "" || cfg.PGDSN != "" {
		t.Fatalf("expected file ledger by default, got %+v", cfg)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AMM_BREAKER_COOLDOWN", "5")
	t.Setenv("AMM_PG_DSN", "postgres://localhost/amm")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint32("slippage-bps", 50, "")
	if err := flags.Parse([]string{"--slippage-bps=125"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BreakerCooldown != 5*time.Minute {
		t.Fatalf("expected env cooldown, got %v", cfg.BreakerCooldown)
	}
	if cfg.PGDSN != "postgres://localhost/amm" {
		t.Fatalf("expected env dsn, got %q", cfg.PGDSN)
	}
	if cfg.SlippageBps != 125 {
		t.Fatalf("expected flag slippage, got %d", cfg.SlippageBps)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amm.yaml")
	if err := os.WriteFile(path, []byte("route-concurrency: 2\njournal: audit.jsonl\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RouteConcurrency != 2 || cfg.Journal != "audit.jsonl" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsBadSlippage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AMM_SLIPPAGE_BPS", "10001")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected validation error")
	}
}
