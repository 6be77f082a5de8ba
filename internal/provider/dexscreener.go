package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// DexScreener is the market-data provider. One lookup returns pairs across
// every network the token trades on, which also makes it the strongest
// chain-detection signal.
type DexScreener struct {
	cfg config.ProviderConfig
	api *apiClient
	log *logger.Log
	now func() time.Time
}

func NewDexScreener(cfg config.ProviderConfig) *DexScreener {
	return &DexScreener{
		cfg: cfg,
		api: newAPIClient(NameDexScreener, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.BurstSize),
		log: logger.GetLogger(),
		now: time.Now,
	}
}

func (d *DexScreener) Name() string             { return NameDexScreener }
func (d *DexScreener) ChainConfidence() float64 { return 0.9 }

type dexPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H24 json.Number `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 json.Number `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD json.Number `json:"usd"`
	} `json:"liquidity"`
	FDV           json.Number `json:"fdv"`
	MarketCap     json.Number `json:"marketCap"`
	PairCreatedAt int64       `json:"pairCreatedAt"`
}

type dexResponse struct {
	Pairs []dexPair `json:"pairs"`
}

var dexChainSlugs = map[string]token.ChainID{
	"ethereum": token.ChainEthereum,
	"bsc":      token.ChainBSC,
	"base":     token.ChainBase,
}

func (d *DexScreener) FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error) {
	resp, err := d.query(ctx, addr)
	if err != nil {
		return nil, err
	}

	// Aggregate liquidity per network so the resolver can break multi-chain
	// ties by where the real pool lives.
	liquidity := make(map[token.ChainID]decimal.Decimal)
	for _, pair := range resp.Pairs {
		chain, ok := dexChainSlugs[strings.ToLower(pair.ChainID)]
		if !ok {
			continue
		}
		liquidity[chain] = liquidity[chain].Add(number(pair.Liquidity.USD))
	}

	var candidates []token.ChainCandidate
	for _, chain := range token.AllChains() {
		if liq, ok := liquidity[chain]; ok {
			candidates = append(candidates, token.ChainCandidate{
				Chain:        chain,
				Liquidity:    liq,
				HasLiquidity: true,
			})
		}
	}
	return candidates, nil
}

func (d *DexScreener) FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error) {
	resp, err := d.query(ctx, addr)
	if err != nil {
		return nil, err
	}

	fields := make(map[token.FieldKey]token.Value)
	if pair := bestPair(resp.Pairs, chain); pair != nil {
		d.collect(fields, pair)
	} else {
		d.log.WithComponent(NameDexScreener).WithFields(logger.Fields{
			"address": string(addr),
			"chain":   string(chain),
		}).Debug("no pair on requested chain")
	}
	return &token.ProviderResult{
		Provider:   NameDexScreener,
		Confidence: d.ChainConfidence(),
		FetchedAt:  d.now().UTC(),
		Fields:     fields,
	}, nil
}

func (d *DexScreener) query(ctx context.Context, addr token.Address) (*dexResponse, error) {
	url := fmt.Sprintf("%s/dex/tokens/%s", strings.TrimRight(d.cfg.BaseURL, "/"), addr)
	var resp dexResponse
	if err := d.api.getJSON(ctx, url, nil, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return &dexResponse{}, nil
		}
		return nil, err
	}
	return &resp, nil
}

// bestPair picks the most liquid pair on the requested chain.
func bestPair(pairs []dexPair, chain token.ChainID) *dexPair {
	var best *dexPair
	var bestLiq decimal.Decimal
	for i := range pairs {
		pair := &pairs[i]
		if dexChainSlugs[strings.ToLower(pair.ChainID)] != chain {
			continue
		}
		liq := number(pair.Liquidity.USD)
		if best == nil || liq.GreaterThan(bestLiq) {
			best = pair
			bestLiq = liq
		}
	}
	return best
}

func (d *DexScreener) collect(fields map[token.FieldKey]token.Value, pair *dexPair) {
	setString(fields, token.FieldName, pair.BaseToken.Name)
	setString(fields, token.FieldSymbol, pair.BaseToken.Symbol)
	setDecimal(fields, token.FieldPriceUSD, pair.PriceUSD)

	setNumber(fields, token.FieldPriceChange24h, pair.PriceChange.H24)
	setNumber(fields, token.FieldVolume24h, pair.Volume.H24)
	setNumber(fields, token.FieldLiquidityUSD, pair.Liquidity.USD)
	setNumber(fields, token.FieldFDV, pair.FDV)
	setNumber(fields, token.FieldMarketCap, pair.MarketCap)

	if pair.PairCreatedAt > 0 {
		created := time.UnixMilli(pair.PairCreatedAt)
		days := int64(d.now().Sub(created).Hours() / 24)
		if days >= 0 {
			fields[token.FieldTokenAgeDays] = token.IntValue(days)
		}
	}
}

func number(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

func setNumber(fields map[token.FieldKey]token.Value, key token.FieldKey, n json.Number) {
	if n == "" {
		return
	}
	if d, err := decimal.NewFromString(n.String()); err == nil {
		fields[key] = token.DecimalValue(d)
	}
}
