// Package provider holds the capability-uniform clients for the external
// data sources. The resolver and aggregator depend only on the Provider
// interface, never on a concrete client.
package provider

import (
	"context"
	"sync"

	"github.com/kunmmi/zagama/internal/token"
)

// Canonical provider names, used as provenance tags in merged records.
const (
	NameGoPlus        = "goplus"
	NameDexScreener   = "dexscreener"
	NameEtherscan     = "etherscan"
	NameGeckoTerminal = "geckoterminal"
	NameRPC           = "rpc"
)

// Provider is one external data source. Both operations are bounded by the
// caller's context; failures come back as *token.ProviderError.
type Provider interface {
	Name() string

	// ChainConfidence is the declared confidence of this provider's
	// chain-detection signal, used by the resolver when a probe matches.
	ChainConfidence() float64

	// FetchChainCandidates reports the networks the address appears to be
	// deployed on. An empty slice with a nil error means "no match".
	FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error)

	// FetchTokenFacts returns whatever fields this source knows about the
	// token on the given chain. A result with zero fields is valid.
	FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error)
}

// probeChains runs one probe per chain concurrently and collects the
// candidates. A probe failure on one network is dropped as long as any other
// probe got through, but when every probe erred the strategy itself failed
// and the first error (in chain order) is surfaced so the resolver can
// record it in the evidence trail.
func probeChains(ctx context.Context, chains []token.ChainID, probe func(ctx context.Context, chain token.ChainID) (*token.ChainCandidate, error)) ([]token.ChainCandidate, error) {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []token.ChainCandidate
	)
	errs := make([]error, len(chains))
	for i, chain := range chains {
		wg.Add(1)
		go func(i int, chain token.ChainID) {
			defer wg.Done()
			cand, err := probe(ctx, chain)
			if err != nil {
				errs[i] = err
				return
			}
			if cand == nil {
				return
			}
			mu.Lock()
			candidates = append(candidates, *cand)
			mu.Unlock()
		}(i, chain)
	}
	wg.Wait()

	allFailed := len(chains) > 0
	for _, err := range errs {
		if err == nil {
			allFailed = false
		}
	}
	if allFailed {
		return nil, errs[0]
	}

	// Deterministic order regardless of probe completion order.
	ordered := make([]token.ChainCandidate, 0, len(candidates))
	for _, chain := range chains {
		for _, cand := range candidates {
			if cand.Chain == chain {
				ordered = append(ordered, cand)
			}
		}
	}
	return ordered, nil
}
