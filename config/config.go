package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values can be written as "8s" or
// "5m" instead of raw nanosecond counts.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Zagama     ZagamaConfig     `yaml:"zagama"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Chains     ChainsConfig     `yaml:"chains"`
	Cache      CacheConfig      `yaml:"cache"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Risk       RiskConfig       `yaml:"risk"`
}

type ZagamaConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type ChainsConfig struct {
	// Default is the fallback network when resolution exhausts every
	// strategy without a confident match.
	Default string `yaml:"default"`
	// Priority orders networks for ambiguous multi-chain tie-breaks.
	Priority []string `yaml:"priority"`
}

type CacheConfig struct {
	// ChainTTL covers address→chain mappings, which are near-static.
	ChainTTL Duration `yaml:"chain_ttl"`
	// RecordTTL covers merged token records, which are volatile.
	RecordTTL     Duration `yaml:"record_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

type ResolverConfig struct {
	// StrategyTimeout bounds each detection strategy independently.
	StrategyTimeout Duration `yaml:"strategy_timeout"`
}

type AggregatorConfig struct {
	ProviderTimeout   Duration `yaml:"provider_timeout"`
	CompletenessFloor float64  `yaml:"completeness_floor"`
}

type ProvidersConfig struct {
	GoPlus        ProviderConfig `yaml:"goplus"`
	DexScreener   ProviderConfig `yaml:"dexscreener"`
	Etherscan     ProviderConfig `yaml:"etherscan"`
	GeckoTerminal ProviderConfig `yaml:"geckoterminal"`
	RPC           RPCConfig      `yaml:"rpc"`
}

type ProviderConfig struct {
	Enabled           bool     `yaml:"enabled"`
	BaseURL           string   `yaml:"base_url"`
	APIKey            string   `yaml:"api_key"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	BurstSize         int      `yaml:"burst_size"`
}

type RPCConfig struct {
	Enabled           bool                `yaml:"enabled"`
	Endpoints         map[string][]string `yaml:"endpoints"`
	Timeout           Duration            `yaml:"timeout"`
	RequestsPerSecond float64             `yaml:"requests_per_second"`
	BurstSize         int                 `yaml:"burst_size"`
}

type RiskConfig struct {
	// HardTaxCeilingPct: buy+sell at or above this is a honeypot.
	HardTaxCeilingPct float64 `yaml:"hard_tax_ceiling_pct"`
	// SoftTaxThresholdPct: buy+sell at or above this is a severe factor.
	SoftTaxThresholdPct   float64 `yaml:"soft_tax_threshold_pct"`
	MinLiquidityUSD       float64 `yaml:"min_liquidity_usd"`
	TopHoldersRatioMaxPct float64 `yaml:"top_holders_ratio_max_pct"`
	CreatorHoldingMaxPct  float64 `yaml:"creator_holding_max_pct"`
	MinHolderCount        int64   `yaml:"min_holder_count"`
	YoungTokenMaxDays     int64   `yaml:"young_token_max_days"`
	DeployerCreationsMax  int64   `yaml:"deployer_creations_max"`
}

var defaultConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

// Default returns the built-in configuration used when no file overrides it.
// Tests build on top of it instead of shipping fixture files.
func Default() *Config {
	return &Config{
		Zagama:  ZagamaConfig{Name: "zagama", Version: "dev"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Chains: ChainsConfig{
			Default:  "ethereum",
			Priority: []string{"ethereum", "bsc", "base"},
		},
		Cache: CacheConfig{
			ChainTTL:      Duration(time.Hour),
			RecordTTL:     Duration(60 * time.Second),
			SweepInterval: Duration(5 * time.Minute),
		},
		Resolver:   ResolverConfig{StrategyTimeout: Duration(8 * time.Second)},
		Aggregator: AggregatorConfig{ProviderTimeout: Duration(10 * time.Second), CompletenessFloor: 0.3},
		Providers: ProvidersConfig{
			GoPlus: ProviderConfig{
				Enabled:           true,
				BaseURL:           "https://api.gopluslabs.io/api/v1",
				Timeout:           Duration(8 * time.Second),
				RequestsPerSecond: 5,
				BurstSize:         2,
			},
			DexScreener: ProviderConfig{
				Enabled:           true,
				BaseURL:           "https://api.dexscreener.com/latest",
				Timeout:           Duration(10 * time.Second),
				RequestsPerSecond: 5,
				BurstSize:         2,
			},
			Etherscan: ProviderConfig{
				Enabled:           true,
				BaseURL:           "https://api.etherscan.io/v2/api",
				Timeout:           Duration(10 * time.Second),
				RequestsPerSecond: 4,
				BurstSize:         1,
			},
			GeckoTerminal: ProviderConfig{
				Enabled:           true,
				BaseURL:           "https://api.geckoterminal.com/api/v2",
				Timeout:           Duration(10 * time.Second),
				RequestsPerSecond: 2,
				BurstSize:         1,
			},
			RPC: RPCConfig{
				Enabled: true,
				Endpoints: map[string][]string{
					"ethereum": {
						"https://eth.llamarpc.com",
						"https://ethereum.publicnode.com",
						"https://rpc.ankr.com/eth",
					},
					"bsc": {
						"https://bsc-dataseed.binance.org",
						"https://bsc.publicnode.com",
					},
					"base": {
						"https://mainnet.base.org",
						"https://base.publicnode.com",
					},
				},
				Timeout:           Duration(10 * time.Second),
				RequestsPerSecond: 10,
				BurstSize:         4,
			},
		},
		Risk: RiskConfig{
			HardTaxCeilingPct:     50,
			SoftTaxThresholdPct:   10,
			MinLiquidityUSD:       1000,
			TopHoldersRatioMaxPct: 50,
			CreatorHoldingMaxPct:  20,
			MinHolderCount:        10,
			YoungTokenMaxDays:     3,
			DeployerCreationsMax:  5,
		},
	}
}

// LoadConfig reads path (or an environment specific variant of it), lays it
// over the defaults, applies env var overrides for secrets, and validates.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, "config/config.yml", defaultConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides pulls secrets from the environment so credentials never
// have to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOPLUS_API_KEY"); v != "" {
		cfg.Providers.GoPlus.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ETHERSCAN_API_KEY"); v != "" {
		cfg.Providers.Etherscan.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" && cfg.Metrics.CloudWatch.Region == "" {
		cfg.Metrics.CloudWatch.Region = strings.TrimSpace(v)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Zagama.Name == "" {
		return fmt.Errorf("zagama.name is required")
	}
	if cfg.Zagama.Version == "" {
		return fmt.Errorf("zagama.version is required")
	}
	if cfg.Chains.Default == "" {
		return fmt.Errorf("chains.default is required")
	}
	if cfg.Resolver.StrategyTimeout <= 0 {
		return fmt.Errorf("resolver.strategy_timeout must be greater than 0")
	}
	if cfg.Aggregator.ProviderTimeout <= 0 {
		return fmt.Errorf("aggregator.provider_timeout must be greater than 0")
	}
	if cfg.Aggregator.CompletenessFloor < 0 || cfg.Aggregator.CompletenessFloor > 1 {
		return fmt.Errorf("aggregator.completeness_floor must be within [0,1]")
	}
	if cfg.Cache.ChainTTL <= 0 || cfg.Cache.RecordTTL <= 0 {
		return fmt.Errorf("cache.chain_ttl and cache.record_ttl must be greater than 0")
	}
	if cfg.Risk.HardTaxCeilingPct <= cfg.Risk.SoftTaxThresholdPct {
		return fmt.Errorf("risk.hard_tax_ceiling_pct must exceed risk.soft_tax_threshold_pct")
	}
	if cfg.Providers.RPC.Enabled && len(cfg.Providers.RPC.Endpoints) == 0 {
		return fmt.Errorf("providers.rpc.endpoints is required when RPC is enabled")
	}
	return nil
}
