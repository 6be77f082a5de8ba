package aggregate

import (
	"fmt"
	"sort"

	"github.com/kunmmi/zagama/internal/provider"
	"github.com/kunmmi/zagama/internal/token"
)

// categoryPriority fixes merge precedence per field category. Lower index
// wins. Providers absent from a category's list share the lowest rank and
// fall back to the most-recent-fetch tie-break.
var categoryPriority = map[token.FieldCategory][]string{
	token.CategoryStructural: {
		provider.NameGoPlus,
		provider.NameDexScreener,
		provider.NameEtherscan,
		provider.NameGeckoTerminal,
		provider.NameRPC,
	},
	token.CategoryMarket: {
		provider.NameDexScreener,
		provider.NameGeckoTerminal,
		provider.NameGoPlus,
		provider.NameRPC,
	},
	token.CategorySecurity: {
		provider.NameGoPlus,
		provider.NameGeckoTerminal,
		provider.NameRPC,
	},
	token.CategoryVerification: {
		provider.NameEtherscan,
		provider.NameGoPlus,
		provider.NameGeckoTerminal,
	},
}

const unrankedPriority = 1 << 10

func providerRank(category token.FieldCategory, name string) int {
	for i, n := range categoryPriority[category] {
		if n == name {
			return i
		}
	}
	return unrankedPriority
}

// Merge combines provider results into one record. The outcome depends only
// on the result set and the priority table, never on arrival order: for each
// field the highest-priority provider wins, equal priority goes to the more
// recent fetch (then provider name as a final stable tie-break), and every
// discarded equal-priority conflict is retained as a soft sourceError.
func Merge(addr token.Address, chain token.ChainID, results []token.ProviderResult, floor float64) *token.TokenRecord {
	record := &token.TokenRecord{
		Address: addr,
		Chain:   chain,
		Fields:  make(map[token.FieldKey]token.SourcedValue),
	}

	keys := collectKeys(results)
	var conflicts []token.SourceIssue

	for _, key := range keys {
		winner, losers := pickValue(key, results)
		if winner == nil {
			continue
		}
		record.Fields[key] = token.SourcedValue{Value: winner.value, Source: winner.provider}
		conflicts = append(conflicts, losers...)
	}

	deriveMarketCap(record)

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Reason != conflicts[j].Reason {
			return conflicts[i].Reason < conflicts[j].Reason
		}
		return conflicts[i].Provider < conflicts[j].Provider
	})
	record.SourceErrors = append(record.SourceErrors, conflicts...)

	record.Completeness = completeness(record)
	record.LowData = record.Completeness < floor
	return record
}

type fieldCandidate struct {
	provider  string
	value     token.Value
	rank      int
	fetchedAt int64
}

// pickValue selects the winning candidate for one key and reports discarded
// equal-priority conflicts.
func pickValue(key token.FieldKey, results []token.ProviderResult) (*fieldCandidate, []token.SourceIssue) {
	category := token.CategoryOf(key)

	candidates := make([]fieldCandidate, 0, len(results))
	for _, res := range results {
		v, ok := res.Fields[key]
		if !ok {
			continue
		}
		candidates = append(candidates, fieldCandidate{
			provider:  res.Provider,
			value:     v,
			rank:      providerRank(category, res.Provider),
			fetchedAt: res.FetchedAt.UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		if candidates[i].fetchedAt != candidates[j].fetchedAt {
			return candidates[i].fetchedAt > candidates[j].fetchedAt
		}
		return candidates[i].provider < candidates[j].provider
	})

	winner := candidates[0]
	var conflicts []token.SourceIssue
	for _, c := range candidates[1:] {
		if c.rank == winner.rank && !c.value.Equal(winner.value) {
			conflicts = append(conflicts, token.SourceIssue{
				Provider: c.provider,
				Reason:   fmt.Sprintf("conflict on %s: discarded %q in favor of %s", key, c.value.String(), winner.provider),
			})
		}
	}
	return &winner, conflicts
}

func collectKeys(results []token.ProviderResult) []token.FieldKey {
	seen := make(map[token.FieldKey]struct{})
	for _, res := range results {
		for key := range res.Fields {
			seen[key] = struct{}{}
		}
	}
	keys := make([]token.FieldKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// deriveMarketCap fills market_cap from price × supply when no provider
// reported it directly. Provenance is tagged "derived".
func deriveMarketCap(record *token.TokenRecord) {
	if _, ok := record.Fields[token.FieldMarketCap]; ok {
		return
	}
	price, okP := record.DecimalField(token.FieldPriceUSD)
	supply, okS := record.DecimalField(token.FieldTotalSupply)
	if !okP || !okS || !supply.IsPositive() {
		return
	}
	record.Fields[token.FieldMarketCap] = token.SourcedValue{
		Value:  token.DecimalValue(price.Mul(supply)),
		Source: "derived",
	}
}

func completeness(record *token.TokenRecord) float64 {
	required := token.RequiredFields()
	populated := 0
	for _, key := range required {
		if _, ok := record.Fields[key]; ok {
			populated++
		}
	}
	return float64(populated) / float64(len(required))
}
