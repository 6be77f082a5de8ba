package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/internal/token"
)

const geckoFixture = `{
	"data": {
		"attributes": {
			"name": "Pepe",
			"symbol": "PEPE",
			"decimals": 18,
			"total_supply": "420690000000000",
			"price_usd": "0.0000012",
			"fdv_usd": "5000000",
			"market_cap_usd": "4800000",
			"total_reserve_in_usd": "250000",
			"volume_usd": {"h24": "1250000"}
		}
	}
}`

func TestGeckoTerminalFetchTokenFacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/networks/eth/tokens/"+string(testAddr) {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, geckoFixture)
	}))
	defer srv.Close()

	g := NewGeckoTerminal(providerConfig(srv.URL))
	res, err := g.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}

	if v := res.Fields[token.FieldDecimals]; v.Int != 18 {
		t.Fatalf("decimals = %+v", v)
	}
	liq, ok := res.Fields[token.FieldLiquidityUSD]
	if !ok || !liq.Dec.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("liquidity_usd = %+v", liq)
	}
}

func TestGeckoTerminalChainCandidatesCarryLiquidity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/networks/base/tokens/"+string(testAddr) {
			fmt.Fprint(w, geckoFixture)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g := NewGeckoTerminal(providerConfig(srv.URL))
	candidates, err := g.FetchChainCandidates(context.Background(), testAddr)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Chain != token.ChainBase {
		t.Fatalf("candidates = %+v", candidates)
	}
	if !candidates[0].HasLiquidity || !candidates[0].Liquidity.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("liquidity signal = %+v", candidates[0])
	}
}
