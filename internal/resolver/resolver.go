// Package resolver decides which network a contract address lives on.
// Detection strategies are data, not control flow: an ordered list walked
// sequentially, each bounded by its own timeout, first confident match wins.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/kunmmi/zagama/internal/provider"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// Strategy is one detection probe. Timeout applies to this strategy alone;
// exceeding it means "no match here", never a hard failure.
type Strategy struct {
	Name       string
	Timeout    time.Duration
	Confidence float64
	Probe      func(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error)
}

// Attempt records one strategy invocation for the evidence trail.
type Attempt struct {
	Strategy   string `json:"strategy"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

const (
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Resolution is the outcome of chain detection. Chain is never
// token.ChainUnknown: exhausting every strategy yields the configured
// default at confidence 0, with the full evidence trail attached.
type Resolution struct {
	Chain      token.ChainID `json:"chain"`
	Confidence float64       `json:"confidence"`
	Evidence   []Attempt     `json:"evidence"`
}

type Resolver struct {
	strategies   []Strategy
	defaultChain token.ChainID
	priority     []token.ChainID
	log          *logger.Log
}

// New builds a resolver over an ordered strategy list. priority orders
// networks for ambiguous multi-chain tie-breaks when no liquidity signal is
// available.
func New(defaultChain token.ChainID, priority []token.ChainID, strategies []Strategy) *Resolver {
	if len(priority) == 0 {
		priority = token.AllChains()
	}
	return &Resolver{
		strategies:   strategies,
		defaultChain: defaultChain,
		priority:     priority,
		log:          logger.GetLogger(),
	}
}

// StrategiesFromProviders derives the standard strategy order from the
// configured providers: market aggregator first, then security API, then
// explorer probes, then backup aggregator, raw ledger last.
func StrategiesFromProviders(providers []provider.Provider, timeout time.Duration) []Strategy {
	order := []string{
		provider.NameDexScreener,
		provider.NameGoPlus,
		provider.NameEtherscan,
		provider.NameGeckoTerminal,
		provider.NameRPC,
	}
	byName := make(map[string]provider.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	var strategies []Strategy
	for _, name := range order {
		p, ok := byName[name]
		if !ok {
			continue
		}
		strategies = append(strategies, Strategy{
			Name:       p.Name(),
			Timeout:    timeout,
			Confidence: p.ChainConfidence(),
			Probe:      p.FetchChainCandidates,
		})
	}
	return strategies
}

// Resolve walks the strategy list until one reports a confident match. The
// address must already be canonical. The only returned error is the calling
// context expiring; strategy failures advance to the next strategy.
func (r *Resolver) Resolve(ctx context.Context, addr token.Address) (*Resolution, error) {
	evidence := make([]Attempt, 0, len(r.strategies))

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sctx, cancel := context.WithTimeout(ctx, s.Timeout)
		start := time.Now()
		candidates, err := s.Probe(sctx, addr)
		cancel()
		elapsed := time.Since(start).Milliseconds()

		attempt := Attempt{Strategy: s.Name, DurationMs: elapsed}
		switch {
		case err != nil:
			attempt.Outcome = OutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				attempt.Outcome = OutcomeTimeout
			}
			attempt.Detail = err.Error()
		case len(candidates) == 0:
			attempt.Outcome = OutcomeNoMatch
		default:
			chain := r.pick(candidates)
			attempt.Outcome = OutcomeMatched
			attempt.Detail = chain.String()
			evidence = append(evidence, attempt)

			r.log.WithComponent("resolver").WithFields(logger.Fields{
				"address":  addr.String(),
				"chain":    chain.String(),
				"strategy": s.Name,
			}).Debug("chain resolved")
			return &Resolution{Chain: chain, Confidence: s.Confidence, Evidence: evidence}, nil
		}

		evidence = append(evidence, attempt)
		r.log.WithComponent("resolver").WithFields(logger.Fields{
			"address":  addr.String(),
			"strategy": s.Name,
			"outcome":  attempt.Outcome,
		}).Debug("strategy exhausted")
	}

	r.log.WithComponent("resolver").WithFields(logger.Fields{
		"address": addr.String(),
		"default": r.defaultChain.String(),
	}).Warn("all detection strategies exhausted, falling back to default chain")

	return &Resolution{Chain: r.defaultChain, Confidence: 0, Evidence: evidence}, nil
}

// pick breaks a multi-chain tie: prefer the network with the largest
// liquidity when the strategy exposed that signal, otherwise the earliest
// network in the configured priority order.
func (r *Resolver) pick(candidates []token.ChainCandidate) token.ChainID {
	if len(candidates) == 1 {
		return candidates[0].Chain
	}

	best := -1
	for i, c := range candidates {
		if !c.HasLiquidity {
			continue
		}
		if best < 0 || c.Liquidity.GreaterThan(candidates[best].Liquidity) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best].Chain
	}

	for _, chain := range r.priority {
		for _, c := range candidates {
			if c.Chain == chain {
				return chain
			}
		}
	}
	return candidates[0].Chain
}
