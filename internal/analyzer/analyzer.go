// Package analyzer composes chain resolution, aggregation and risk scoring
// into the single analyze entry point the outer surfaces call.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/aggregate"
	"github.com/kunmmi/zagama/internal/cache"
	"github.com/kunmmi/zagama/internal/provider"
	"github.com/kunmmi/zagama/internal/resolver"
	"github.com/kunmmi/zagama/internal/risk"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// Timings carries the wall-clock cost of the two expensive stages. A report
// served from cache keeps the timings of the run that produced it.
type Timings struct {
	ChainResolutionMs int64 `json:"chain_resolution_ms"`
	AggregationMs     int64 `json:"aggregation_ms"`
}

// Report is the immutable result of one analysis.
type Report struct {
	Record     *token.TokenRecord   `json:"record"`
	Risk       risk.Assessment      `json:"risk"`
	Resolution *resolver.Resolution `json:"resolution"`
	Timings    Timings              `json:"timings"`
}

// Analyzer owns the provider clients and the two cache tiers: chain
// resolutions are near-static and live long, merged records expire fast.
type Analyzer struct {
	cfg         *config.Config
	providers   []provider.Provider
	resolver    *resolver.Resolver
	aggregator  *aggregate.Aggregator
	engine      *risk.Engine
	chainCache  *cache.Cache[*resolver.Resolution]
	recordCache *cache.Cache[*Report]
	log         *logger.Entry
}

func New(cfg *config.Config) (*Analyzer, error) {
	providers := buildProviders(cfg)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers enabled")
	}

	defaultChain, err := token.ParseChain(cfg.Chains.Default)
	if err != nil {
		return nil, fmt.Errorf("default chain: %w", err)
	}
	priority := make([]token.ChainID, 0, len(cfg.Chains.Priority))
	for _, name := range cfg.Chains.Priority {
		chain, err := token.ParseChain(name)
		if err != nil {
			return nil, fmt.Errorf("priority list: %w", err)
		}
		priority = append(priority, chain)
	}

	strategies := resolver.StrategiesFromProviders(providers, cfg.Resolver.StrategyTimeout.Std())
	return &Analyzer{
		cfg:         cfg,
		providers:   providers,
		resolver:    resolver.New(defaultChain, priority, strategies),
		aggregator:  aggregate.New(providers, cfg.Aggregator.ProviderTimeout.Std(), cfg.Aggregator.CompletenessFloor),
		engine:      risk.NewEngine(cfg.Risk),
		chainCache:  cache.New[*resolver.Resolution](),
		recordCache: cache.New[*Report](),
		log:         logger.GetLogger().WithComponent("analyzer"),
	}, nil
}

func buildProviders(cfg *config.Config) []provider.Provider {
	var out []provider.Provider
	if cfg.Providers.GoPlus.Enabled {
		out = append(out, provider.NewGoPlus(cfg.Providers.GoPlus))
	}
	if cfg.Providers.DexScreener.Enabled {
		out = append(out, provider.NewDexScreener(cfg.Providers.DexScreener))
	}
	if cfg.Providers.Etherscan.Enabled {
		out = append(out, provider.NewEtherscan(cfg.Providers.Etherscan))
	}
	if cfg.Providers.GeckoTerminal.Enabled {
		out = append(out, provider.NewGeckoTerminal(cfg.Providers.GeckoTerminal))
	}
	if cfg.Providers.RPC.Enabled {
		out = append(out, provider.NewRPC(cfg.Providers.RPC))
	}
	return out
}

// StartSweeps launches the background eviction loops for both caches. They
// stop when ctx is cancelled.
func (a *Analyzer) StartSweeps(ctx context.Context) {
	a.chainCache.StartSweep(ctx, a.cfg.Cache.SweepInterval.Std())
	a.recordCache.StartSweep(ctx, a.cfg.Cache.SweepInterval.Std())
}

// Analyze validates the raw address, resolves its chain and produces a full
// report. The only fatal outcomes are a malformed address, a total provider
// blackout with no chain signal, and caller context expiry.
func (a *Analyzer) Analyze(ctx context.Context, raw string) (*Report, error) {
	addr, err := token.CanonicalAddress(raw)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := a.log.WithFields(logger.Fields{"request_id": requestID, "address": string(addr)})
	log.Info("analysis requested")

	var resolutionMs int64
	resolution, err := a.chainCache.GetOrLoad(ctx, string(addr), a.cfg.Cache.ChainTTL.Std(),
		func(ctx context.Context) (*resolver.Resolution, error) {
			start := time.Now()
			res, err := a.resolver.Resolve(ctx, addr)
			resolutionMs = time.Since(start).Milliseconds()
			return res, err
		})
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"chain":      string(resolution.Chain),
		"confidence": resolution.Confidence,
	}).Debug("chain resolved")

	return a.report(ctx, log, addr, resolution, resolutionMs)
}

// AnalyzeOnChain skips resolution for callers that already know the network.
func (a *Analyzer) AnalyzeOnChain(ctx context.Context, raw string, chain token.ChainID) (*Report, error) {
	addr, err := token.CanonicalAddress(raw)
	if err != nil {
		return nil, err
	}
	if !chain.Valid() {
		return nil, fmt.Errorf("unknown chain %q", chain)
	}
	log := a.log.WithFields(logger.Fields{"request_id": uuid.NewString(), "address": string(addr)})
	resolution := &resolver.Resolution{Chain: chain, Confidence: 1}
	return a.report(ctx, log, addr, resolution, 0)
}

func (a *Analyzer) report(ctx context.Context, log *logger.Entry, addr token.Address, resolution *resolver.Resolution, resolutionMs int64) (*Report, error) {
	key := string(resolution.Chain) + ":" + string(addr)
	report, err := a.recordCache.GetOrLoad(ctx, key, a.cfg.Cache.RecordTTL.Std(),
		func(ctx context.Context) (*Report, error) {
			start := time.Now()
			record, err := a.aggregator.Aggregate(ctx, addr, resolution.Chain)
			if err != nil {
				// A total provider blackout is only fatal when chain
				// detection also found nothing: with a matched chain the
				// empty record still carries a reportable answer.
				if !errors.Is(err, token.ErrAggregationFailed) || resolution.Confidence <= 0 || record == nil {
					return nil, err
				}
				log.WithError(err).Warn("aggregation returned no fields")
			}
			return &Report{
				Record:     record,
				Risk:       a.engine.Assess(record),
				Resolution: resolution,
				Timings: Timings{
					ChainResolutionMs: resolutionMs,
					AggregationMs:     time.Since(start).Milliseconds(),
				},
			}, nil
		})
	if err != nil {
		return nil, err
	}
	logger.IncrementAnalysis()
	log.WithFields(logger.Fields{
		"chain":        string(report.Record.Chain),
		"tier":         string(report.Risk.Tier),
		"completeness": report.Record.Completeness,
	}).Info("analysis complete")
	return report, nil
}
