package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTempConfig writes a config file overriding a slice of the defaults
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := validateConfig(Default()); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeTempConfig(t, `
zagama:
  name: "zagama-test"
  version: "9.9"
resolver:
  strategy_timeout: "3s"
cache:
  record_ttl: "90s"
providers:
  rpc:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Zagama.Name != "zagama-test" {
		t.Errorf("name = %q", cfg.Zagama.Name)
	}
	if got := cfg.Resolver.StrategyTimeout.Std(); got != 3*time.Second {
		t.Errorf("strategy_timeout = %v", got)
	}
	if got := cfg.Cache.RecordTTL.Std(); got != 90*time.Second {
		t.Errorf("record_ttl = %v", got)
	}
	if cfg.Providers.RPC.Enabled {
		t.Error("rpc still enabled")
	}

	// Untouched sections keep their defaults.
	if cfg.Chains.Default != "ethereum" {
		t.Errorf("chains.default = %q", cfg.Chains.Default)
	}
	if !cfg.Providers.GoPlus.Enabled {
		t.Error("goplus lost its default enablement")
	}
	if cfg.Risk.HardTaxCeilingPct != 50 {
		t.Errorf("hard_tax_ceiling_pct = %v", cfg.Risk.HardTaxCeilingPct)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeTempConfig(t, "zagama: [broken")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("GOPLUS_API_KEY", " gp-secret ")
	t.Setenv("ETHERSCAN_API_KEY", "es-secret")

	path := writeTempConfig(t, `
zagama:
  name: "zagama-test"
  version: "1.0"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers.GoPlus.APIKey != "gp-secret" {
		t.Errorf("goplus api key = %q", cfg.Providers.GoPlus.APIKey)
	}
	if cfg.Providers.Etherscan.APIKey != "es-secret" {
		t.Errorf("etherscan api key = %q", cfg.Providers.Etherscan.APIKey)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"empty name", func(cfg *Config) { cfg.Zagama.Name = "" }},
		{"empty default chain", func(cfg *Config) { cfg.Chains.Default = "" }},
		{"zero strategy timeout", func(cfg *Config) { cfg.Resolver.StrategyTimeout = 0 }},
		{"zero provider timeout", func(cfg *Config) { cfg.Aggregator.ProviderTimeout = 0 }},
		{"floor above one", func(cfg *Config) { cfg.Aggregator.CompletenessFloor = 1.5 }},
		{"zero record ttl", func(cfg *Config) { cfg.Cache.RecordTTL = 0 }},
		{"tax ceiling below threshold", func(cfg *Config) { cfg.Risk.HardTaxCeilingPct = 5 }},
		{"rpc without endpoints", func(cfg *Config) { cfg.Providers.RPC.Endpoints = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	path := writeTempConfig(t, `
cache:
  chain_ttl: "2h"
  record_ttl: "45s"
  sweep_interval: "90s"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Cache.ChainTTL.Std(); got != 2*time.Hour {
		t.Errorf("chain_ttl = %v", got)
	}
	if got := cfg.Cache.SweepInterval.Std(); got != 90*time.Second {
		t.Errorf("sweep_interval = %v", got)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	path := writeTempConfig(t, `
resolver:
  strategy_timeout: "soon"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv(appEnvVar, "prod")
	if got := AppEnvironment(); got != environmentProduction {
		t.Errorf("environment = %q", got)
	}

	t.Setenv(appEnvVar, "")
	if got := AppEnvironment(); got != environmentDevelopment {
		t.Errorf("environment = %q", got)
	}
}
