package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/internal/token"
)

const dexFixture = `{
	"pairs": [
		{
			"chainId": "ethereum",
			"dexId": "uniswap",
			"pairAddress": "0xaaaa",
			"baseToken": {"address": "%[1]s", "name": "Pepe", "symbol": "PEPE"},
			"priceUsd": "0.0000012",
			"priceChange": {"h24": -3.4},
			"volume": {"h24": 1250000},
			"liquidity": {"usd": 500000},
			"fdv": 5000000,
			"marketCap": 4800000,
			"pairCreatedAt": 1690000000000
		},
		{
			"chainId": "ethereum",
			"dexId": "sushiswap",
			"pairAddress": "0xbbbb",
			"baseToken": {"address": "%[1]s", "name": "Pepe", "symbol": "PEPE"},
			"priceUsd": "0.0000011",
			"liquidity": {"usd": 20000}
		},
		{
			"chainId": "bsc",
			"dexId": "pancakeswap",
			"pairAddress": "0xcccc",
			"baseToken": {"address": "%[1]s", "name": "Pepe", "symbol": "PEPE"},
			"priceUsd": "0.0000010",
			"liquidity": {"usd": 900000}
		}
	]
}`

func dexServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/tokens/"+string(testAddr) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, dexFixture, testAddr)
	}))
}

func TestDexScreenerFetchTokenFacts(t *testing.T) {
	srv := dexServer(t)
	defer srv.Close()

	d := NewDexScreener(providerConfig(srv.URL))
	res, err := d.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}

	// Most liquid pair on the requested chain wins, not the BSC pool.
	liq, ok := res.Fields[token.FieldLiquidityUSD]
	if !ok || !liq.Dec.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("liquidity_usd = %+v", liq)
	}
	price, ok := res.Fields[token.FieldPriceUSD]
	if !ok {
		t.Fatal("price_usd missing")
	}
	if want, _ := decimal.NewFromString("0.0000012"); !price.Dec.Equal(want) {
		t.Fatalf("price_usd = %s", price.Dec)
	}
	if v := res.Fields[token.FieldSymbol]; v.Str != "PEPE" {
		t.Fatalf("symbol = %+v", v)
	}
	if _, ok := res.Fields[token.FieldTokenAgeDays]; !ok {
		t.Fatal("token_age_days missing despite pairCreatedAt")
	}
}

func TestDexScreenerChainCandidates(t *testing.T) {
	srv := dexServer(t)
	defer srv.Close()

	d := NewDexScreener(providerConfig(srv.URL))
	candidates, err := d.FetchChainCandidates(context.Background(), testAddr)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %+v", candidates)
	}

	// Per-chain liquidity is summed across pairs.
	byChain := map[token.ChainID]decimal.Decimal{}
	for _, c := range candidates {
		if !c.HasLiquidity {
			t.Fatalf("candidate %s missing liquidity signal", c.Chain)
		}
		byChain[c.Chain] = c.Liquidity
	}
	if !byChain[token.ChainEthereum].Equal(decimal.NewFromInt(520000)) {
		t.Fatalf("ethereum liquidity = %s", byChain[token.ChainEthereum])
	}
	if !byChain[token.ChainBSC].Equal(decimal.NewFromInt(900000)) {
		t.Fatalf("bsc liquidity = %s", byChain[token.ChainBSC])
	}
}

func TestDexScreenerNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDexScreener(providerConfig(srv.URL))
	res, err := d.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fields) != 0 {
		t.Fatalf("unexpected fields from 404: %v", res.Fields)
	}
}

func TestDexScreenerRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDexScreener(providerConfig(srv.URL))
	_, err := d.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)

	var pe *token.ProviderError
	if !errors.As(err, &pe) || pe.Kind != token.ErrKindRateLimited {
		t.Fatalf("want rate_limited ProviderError, got %v", err)
	}
}

func TestDexScreenerMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs": [`)
	}))
	defer srv.Close()

	d := NewDexScreener(providerConfig(srv.URL))
	_, err := d.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)

	var pe *token.ProviderError
	if !errors.As(err, &pe) || pe.Kind != token.ErrKindMalformed {
		t.Fatalf("want malformed ProviderError, got %v", err)
	}
}
