package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/provider"
	"github.com/kunmmi/zagama/internal/risk"
	"github.com/kunmmi/zagama/internal/token"
)

const (
	rawAddr       = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	canonicalAddr = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

// dexFixture lists one deep pool on BSC so resolution picks bsc with the
// market aggregator's confidence.
const dexFixture = `{
	"pairs": [
		{
			"chainId": "bsc",
			"dexId": "pancakeswap",
			"pairAddress": "0x1111111111111111111111111111111111111111",
			"baseToken": {"address": "` + canonicalAddr + `", "name": "Pepe", "symbol": "PEPE"},
			"priceUsd": "0.000001",
			"priceChange": {"h24": -3.4},
			"volume": {"h24": 1250000},
			"liquidity": {"usd": 900000},
			"fdv": 5000000,
			"marketCap": 4800000,
			"pairCreatedAt": 1690000000000
		}
	]
}`

const goplusFixture = `{
	"code": 1,
	"message": "OK",
	"result": {
		"` + canonicalAddr + `": {
			"token_name": "Pepe",
			"token_symbol": "PEPE",
			"total_supply": "420690000000000",
			"holder_count": "5231",
			"buy_tax": "0.02",
			"sell_tax": "0.05",
			"is_honeypot": "0",
			"cannot_sell_all": "0",
			"is_open_source": "1",
			"is_proxy": "0",
			"is_mintable": "0",
			"transfer_pausable": "0",
			"is_blacklisted": "0"
		}
	}
}`

// testStack wires the analyzer to two in-process providers. GoPlus only
// knows the token on BSC, matching the DexScreener pool.
func testStack(t *testing.T) (*Analyzer, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	dexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, dexFixture)
	}))
	t.Cleanup(dexSrv.Close)

	goplusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.Contains(r.URL.Path, "/token_security/56") {
			fmt.Fprint(w, goplusFixture)
			return
		}
		fmt.Fprint(w, `{"code": 1, "message": "OK", "result": {}}`)
	}))
	t.Cleanup(goplusSrv.Close)

	cfg := testConfig(dexSrv.URL, goplusSrv.URL)
	a, err := New(cfg)
	require.NoError(t, err)
	return a, &hits
}

func testConfig(dexURL, goplusURL string) *config.Config {
	cfg := config.Default()
	cfg.Providers.Etherscan.Enabled = false
	cfg.Providers.GeckoTerminal.Enabled = false
	cfg.Providers.RPC.Enabled = false
	cfg.Providers.DexScreener.BaseURL = dexURL
	cfg.Providers.DexScreener.RequestsPerSecond = 1000
	cfg.Providers.DexScreener.BurstSize = 100
	cfg.Providers.GoPlus.BaseURL = goplusURL
	cfg.Providers.GoPlus.RequestsPerSecond = 1000
	cfg.Providers.GoPlus.BurstSize = 100
	return cfg
}

func TestAnalyzeRejectsInvalidAddress(t *testing.T) {
	a, _ := testStack(t)

	_, err := a.Analyze(context.Background(), "not-an-address")
	require.ErrorIs(t, err, token.ErrInvalidAddress)

	// Bad checksum on a mixed-case address is rejected before any fetch.
	_, err = a.Analyze(context.Background(), "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD")
	require.ErrorIs(t, err, token.ErrInvalidAddress)
}

func TestAnalyzeResolvesChainAndReports(t *testing.T) {
	a, _ := testStack(t)

	report, err := a.Analyze(context.Background(), rawAddr)
	require.NoError(t, err)

	require.Equal(t, token.ChainBSC, report.Resolution.Chain)
	require.InDelta(t, 0.9, report.Resolution.Confidence, 1e-9)
	require.NotEmpty(t, report.Resolution.Evidence)

	require.Equal(t, token.Address(canonicalAddr), report.Record.Address)
	require.Equal(t, token.ChainBSC, report.Record.Chain)

	// Security facts come from the security scan, market facts from the
	// market aggregator.
	require.Equal(t, provider.NameGoPlus, report.Record.Fields[token.FieldBuyTax].Source)
	require.Equal(t, provider.NameDexScreener, report.Record.Fields[token.FieldPriceUSD].Source)

	require.Equal(t, risk.TierSafe, report.Risk.Tier)
	require.False(t, report.Record.LowData)
}

func TestAnalyzeServesSecondCallFromCache(t *testing.T) {
	a, hits := testStack(t)

	first, err := a.Analyze(context.Background(), rawAddr)
	require.NoError(t, err)

	before := hits.Load()
	second, err := a.Analyze(context.Background(), rawAddr)
	require.NoError(t, err)

	require.Equal(t, before, hits.Load(), "second analysis reached the providers")
	require.Same(t, first, second)
}

func TestAnalyzeOnChainSkipsResolution(t *testing.T) {
	a, _ := testStack(t)

	report, err := a.AnalyzeOnChain(context.Background(), rawAddr, token.ChainBSC)
	require.NoError(t, err)

	require.Equal(t, token.ChainBSC, report.Resolution.Chain)
	require.InDelta(t, 1.0, report.Resolution.Confidence, 1e-9)
	require.Empty(t, report.Resolution.Evidence)
	require.Zero(t, report.Timings.ChainResolutionMs)
}

func TestAnalyzeOnChainRejectsUnknownChain(t *testing.T) {
	a, _ := testStack(t)

	_, err := a.AnalyzeOnChain(context.Background(), rawAddr, token.ChainID("solana"))
	require.Error(t, err)
}

func TestAnalyzeProviderBlackoutWithKnownChain(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)

	a, err := New(testConfig(down.URL, down.URL))
	require.NoError(t, err)

	// The chain is known, so the blackout is reportable rather than fatal.
	report, err := a.AnalyzeOnChain(context.Background(), rawAddr, token.ChainEthereum)
	require.NoError(t, err)

	require.Empty(t, report.Record.Fields)
	require.True(t, report.Record.LowData)
	require.Len(t, report.Record.SourceErrors, 2)
	require.Equal(t, risk.TierMedium, report.Risk.Tier)
	require.Contains(t, report.Risk.Factors, risk.FactorInsufficientData)
}

func TestNewRequiresAtLeastOneProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.GoPlus.Enabled = false
	cfg.Providers.DexScreener.Enabled = false
	cfg.Providers.Etherscan.Enabled = false
	cfg.Providers.GeckoTerminal.Enabled = false
	cfg.Providers.RPC.Enabled = false

	_, err := New(cfg)
	require.Error(t, err)
}
