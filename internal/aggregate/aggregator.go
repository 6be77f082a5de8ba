// Package aggregate fans a token lookup out to every configured provider and
// folds the responses into a single TokenRecord with per-field provenance.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kunmmi/zagama/internal/provider"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// Aggregator queries all providers concurrently, each under its own timeout,
// and stops waiting once the required fields are covered.
type Aggregator struct {
	providers       []provider.Provider
	providerTimeout time.Duration
	floor           float64
	log             *logger.Entry
}

func New(providers []provider.Provider, providerTimeout time.Duration, completenessFloor float64) *Aggregator {
	return &Aggregator{
		providers:       providers,
		providerTimeout: providerTimeout,
		floor:           completenessFloor,
		log:             logger.GetLogger().WithComponent("aggregate"),
	}
}

type envelope struct {
	name   string
	result *token.ProviderResult
	err    error
}

// Aggregate fetches the token's facts from every provider and merges them.
// Individual provider failures are absorbed into the record's sourceErrors.
// When every provider fails the returned error wraps ErrAggregationFailed,
// but the record is still non-nil (empty fields, failures listed) so the
// caller can choose to report it instead of aborting.
func (a *Aggregator) Aggregate(ctx context.Context, addr token.Address, chain token.ChainID) (*token.TokenRecord, error) {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan envelope, len(a.providers))
	for _, p := range a.providers {
		go func(p provider.Provider) {
			pctx, pcancel := context.WithTimeout(fanCtx, a.providerTimeout)
			defer pcancel()
			res, err := p.FetchTokenFacts(pctx, addr, chain)
			ch <- envelope{name: p.Name(), result: res, err: err}
		}(p)
	}

	var (
		results []token.ProviderResult
		failed  = make(map[string]string, len(a.providers))
		covered bool
	)
	for range a.providers {
		env := <-ch
		if covered {
			// Arrived after the early cancel; simply discarded.
			continue
		}
		logger.RecordProviderFetch(env.name, env.err == nil)
		if env.err != nil {
			failed[env.name] = failureReason(env.err)
			a.log.WithFields(logger.Fields{
				"provider": env.name,
				"address":  string(addr),
				"chain":    string(chain),
			}).WithError(env.err).Warn("provider fetch failed")
			continue
		}
		if env.result == nil {
			continue
		}
		results = append(results, *env.result)
		if requiredCovered(results) {
			covered = true
			cancel()
		}
	}

	record := Merge(addr, chain, results, a.floor)

	// Provider failures lead the sourceErrors list, in configuration order,
	// ahead of any soft merge conflicts.
	issues := make([]token.SourceIssue, 0, len(failed))
	for _, p := range a.providers {
		if reason, ok := failed[p.Name()]; ok {
			issues = append(issues, token.SourceIssue{Provider: p.Name(), Reason: reason})
		}
	}
	record.SourceErrors = append(issues, record.SourceErrors...)

	if len(results) == 0 {
		return record, fmt.Errorf("%w: all %d providers failed for %s on %s",
			token.ErrAggregationFailed, len(a.providers), addr, chain)
	}

	a.log.WithFields(logger.Fields{
		"address":      string(addr),
		"chain":        string(chain),
		"providers_ok": len(results),
		"completeness": record.Completeness,
		"low_data":     record.LowData,
	}).Debug("aggregation complete")
	return record, nil
}

// requiredCovered reports whether the union of the collected results already
// populates every required field, making further waiting pointless.
func requiredCovered(results []token.ProviderResult) bool {
	for _, key := range token.RequiredFields() {
		found := false
		for _, res := range results {
			if _, ok := res.Fields[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func failureReason(err error) string {
	var pe *token.ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return err.Error()
}
