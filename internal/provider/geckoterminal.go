package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// GeckoTerminal is the backup aggregator: lowest-priority source for fields
// the primaries miss, and a secondary chain-detection signal.
type GeckoTerminal struct {
	cfg config.ProviderConfig
	api *apiClient
	log *logger.Log
	now func() time.Time
}

func NewGeckoTerminal(cfg config.ProviderConfig) *GeckoTerminal {
	return &GeckoTerminal{
		cfg: cfg,
		api: newAPIClient(NameGeckoTerminal, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.BurstSize),
		log: logger.GetLogger(),
		now: time.Now,
	}
}

func (g *GeckoTerminal) Name() string             { return NameGeckoTerminal }
func (g *GeckoTerminal) ChainConfidence() float64 { return 0.6 }

var geckoNetworkSlugs = map[token.ChainID]string{
	token.ChainEthereum: "eth",
	token.ChainBSC:      "bsc",
	token.ChainBase:     "base",
}

type geckoAttributes struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          int64  `json:"decimals"`
	TotalSupply       string `json:"total_supply"`
	PriceUSD          string `json:"price_usd"`
	FDVUSD            string `json:"fdv_usd"`
	MarketCapUSD      string `json:"market_cap_usd"`
	TotalReserveInUSD string `json:"total_reserve_in_usd"`
	VolumeUSD         struct {
		H24 string `json:"h24"`
	} `json:"volume_usd"`
}

type geckoResponse struct {
	Data struct {
		Attributes geckoAttributes `json:"attributes"`
	} `json:"data"`
}

func (g *GeckoTerminal) FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error) {
	return probeChains(ctx, token.AllChains(), func(ctx context.Context, chain token.ChainID) (*token.ChainCandidate, error) {
		attrs, err := g.query(ctx, addr, chain)
		if err != nil || attrs == nil {
			return nil, err
		}
		cand := &token.ChainCandidate{Chain: chain}
		if reserve, err := decimal.NewFromString(attrs.TotalReserveInUSD); err == nil {
			cand.Liquidity = reserve
			cand.HasLiquidity = true
		}
		return cand, nil
	})
}

func (g *GeckoTerminal) FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error) {
	attrs, err := g.query(ctx, addr, chain)
	if err != nil {
		return nil, err
	}

	fields := make(map[token.FieldKey]token.Value)
	if attrs != nil {
		setString(fields, token.FieldName, attrs.Name)
		setString(fields, token.FieldSymbol, attrs.Symbol)
		if attrs.Decimals > 0 {
			fields[token.FieldDecimals] = token.IntValue(attrs.Decimals)
		}
		setDecimal(fields, token.FieldTotalSupply, attrs.TotalSupply)
		setDecimal(fields, token.FieldPriceUSD, attrs.PriceUSD)
		setDecimal(fields, token.FieldFDV, attrs.FDVUSD)
		setDecimal(fields, token.FieldMarketCap, attrs.MarketCapUSD)
		setDecimal(fields, token.FieldLiquidityUSD, attrs.TotalReserveInUSD)
		setDecimal(fields, token.FieldVolume24h, attrs.VolumeUSD.H24)
	}
	return &token.ProviderResult{
		Provider:   NameGeckoTerminal,
		Confidence: g.ChainConfidence(),
		FetchedAt:  g.now().UTC(),
		Fields:     fields,
	}, nil
}

func (g *GeckoTerminal) query(ctx context.Context, addr token.Address, chain token.ChainID) (*geckoAttributes, error) {
	slug, ok := geckoNetworkSlugs[chain]
	if !ok {
		return nil, nil
	}
	url := fmt.Sprintf("%s/networks/%s/tokens/%s", strings.TrimRight(g.cfg.BaseURL, "/"), slug, addr)

	var resp geckoResponse
	if err := g.api.getJSON(ctx, url, map[string]string{"Accept": "application/json"}, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			g.log.WithComponent(NameGeckoTerminal).WithFields(logger.Fields{
				"address": string(addr),
				"chain":   string(chain),
			}).Debug("token not listed")
			return nil, nil
		}
		return nil, err
	}
	return &resp.Data.Attributes, nil
}
