package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// GoPlus is the security-analysis provider. It is authoritative for tax and
// security-flag fields in the merge precedence.
type GoPlus struct {
	cfg config.ProviderConfig
	api *apiClient
	log *logger.Log
	now func() time.Time
}

func NewGoPlus(cfg config.ProviderConfig) *GoPlus {
	return &GoPlus{
		cfg: cfg,
		api: newAPIClient(NameGoPlus, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.BurstSize),
		log: logger.GetLogger(),
		now: time.Now,
	}
}

func (g *GoPlus) Name() string             { return NameGoPlus }
func (g *GoPlus) ChainConfidence() float64 { return 0.8 }

type goplusHolder struct {
	Address    string `json:"address"`
	Percent    string `json:"percent"`
	IsContract int    `json:"is_contract"`
	IsLocked   int    `json:"is_locked"`
}

type goplusToken struct {
	TokenName        string         `json:"token_name"`
	TokenSymbol      string         `json:"token_symbol"`
	TotalSupply      string         `json:"total_supply"`
	HolderCount      string         `json:"holder_count"`
	BuyTax           string         `json:"buy_tax"`
	SellTax          string         `json:"sell_tax"`
	IsHoneypot       string         `json:"is_honeypot"`
	CannotSellAll    string         `json:"cannot_sell_all"`
	IsOpenSource     string         `json:"is_open_source"`
	IsProxy          string         `json:"is_proxy"`
	IsMintable       string         `json:"is_mintable"`
	TransferPausable string         `json:"transfer_pausable"`
	IsBlacklisted    string         `json:"is_blacklisted"`
	CreatorAddress   string         `json:"creator_address"`
	CreatorPercent   string         `json:"creator_percent"`
	Holders          []goplusHolder `json:"holders"`
	LPHolders        []goplusHolder `json:"lp_holders"`
}

type goplusResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Result  map[string]goplusToken `json:"result"`
}

// FetchChainCandidates probes every supported network; GoPlus keys its API
// on the numeric chain id, so each network is one call.
func (g *GoPlus) FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error) {
	return probeChains(ctx, token.AllChains(), func(ctx context.Context, chain token.ChainID) (*token.ChainCandidate, error) {
		data, err := g.query(ctx, addr, chain)
		if err != nil {
			return nil, err
		}
		if data == nil || data.TokenName == "" {
			return nil, nil
		}
		return &token.ChainCandidate{Chain: chain}, nil
	})
}

func (g *GoPlus) FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error) {
	data, err := g.query(ctx, addr, chain)
	if err != nil {
		return nil, err
	}

	fields := make(map[token.FieldKey]token.Value)
	if data != nil {
		g.collect(fields, data, addr)
	}
	return &token.ProviderResult{
		Provider:   NameGoPlus,
		Confidence: g.ChainConfidence(),
		FetchedAt:  g.now().UTC(),
		Fields:     fields,
	}, nil
}

func (g *GoPlus) query(ctx context.Context, addr token.Address, chain token.ChainID) (*goplusToken, error) {
	url := fmt.Sprintf("%s/token_security/%d?contract_addresses=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), chain.NumericID(), addr)

	headers := map[string]string{}
	if g.cfg.APIKey != "" {
		headers["X-API-KEY"] = g.cfg.APIKey
	}

	var resp goplusResponse
	if err := g.api.getJSON(ctx, url, headers, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Code != 1 {
		g.log.WithComponent(NameGoPlus).WithFields(logger.Fields{
			"address": string(addr),
			"code":    resp.Code,
			"message": resp.Message,
		}).Debug("API rejected request")
		return nil, token.NewProviderError(NameGoPlus, token.ErrKindMalformed,
			fmt.Errorf("API code %d: %s", resp.Code, resp.Message))
	}
	data, ok := resp.Result[string(addr)]
	if !ok {
		return nil, nil
	}
	return &data, nil
}

func (g *GoPlus) collect(fields map[token.FieldKey]token.Value, data *goplusToken, addr token.Address) {
	setString(fields, token.FieldName, data.TokenName)
	setString(fields, token.FieldSymbol, data.TokenSymbol)
	setDecimal(fields, token.FieldTotalSupply, data.TotalSupply)
	setInt(fields, token.FieldHolderCount, data.HolderCount)
	setString(fields, token.FieldCreatorAddress, strings.ToLower(data.CreatorAddress))

	// GoPlus reports taxes and holder shares as fractions; records carry
	// percentages.
	setPercent(fields, token.FieldBuyTax, data.BuyTax)
	setPercent(fields, token.FieldSellTax, data.SellTax)
	setPercent(fields, token.FieldCreatorPct, data.CreatorPercent)

	setFlag(fields, token.FieldHoneypot, data.IsHoneypot)
	setFlag(fields, token.FieldTradingDisabled, data.CannotSellAll)
	setFlag(fields, token.FieldVerified, data.IsOpenSource)
	setFlag(fields, token.FieldProxyContract, data.IsProxy)
	setFlag(fields, token.FieldMintable, data.IsMintable)
	setFlag(fields, token.FieldPausable, data.TransferPausable)
	setFlag(fields, token.FieldBlacklist, data.IsBlacklisted)

	if ratio, clog, burn, ok := holderStats(data.Holders, addr); ok {
		fields[token.FieldTopHoldersRatio] = token.DecimalValue(ratio)
		if clog.IsPositive() {
			fields[token.FieldContractClogPct] = token.DecimalValue(clog)
		}
		if burn.IsPositive() {
			fields[token.FieldBurnPct] = token.DecimalValue(burn)
		}
	}
	if len(data.LPHolders) > 0 {
		locked := false
		for _, lp := range data.LPHolders {
			if lp.IsLocked != 1 {
				continue
			}
			locked = true
			if platform, ok := lockPlatform(lp.Address); ok {
				fields[token.FieldLockPlatform] = token.StringValue(platform)
				break
			}
		}
		fields[token.FieldLiquidityLocked] = token.BoolValue(locked)
	}
}

var burnAddresses = map[string]struct{}{
	"0x0000000000000000000000000000000000000000": {},
	"0x000000000000000000000000000000000000dead": {},
}

// holderStats sums the reported top-holder shares into a percentage,
// separating out the token contract's own balance ("clog") and burned
// supply, which do not count as concentration.
func holderStats(holders []goplusHolder, addr token.Address) (ratio, clog, burn decimal.Decimal, ok bool) {
	if len(holders) == 0 {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, false
	}
	hundred := decimal.NewFromInt(100)
	for i, h := range holders {
		if i >= 10 {
			break
		}
		pct, err := decimal.NewFromString(h.Percent)
		if err != nil {
			continue
		}
		pct = pct.Mul(hundred)
		holderAddr := strings.ToLower(h.Address)
		if _, burned := burnAddresses[holderAddr]; burned {
			burn = burn.Add(pct)
			continue
		}
		if holderAddr == string(addr) {
			clog = clog.Add(pct)
			continue
		}
		ratio = ratio.Add(pct)
	}
	return ratio, clog, burn, true
}

func setString(fields map[token.FieldKey]token.Value, key token.FieldKey, s string) {
	if s != "" {
		fields[key] = token.StringValue(s)
	}
}

func setDecimal(fields map[token.FieldKey]token.Value, key token.FieldKey, s string) {
	if s == "" {
		return
	}
	if d, err := decimal.NewFromString(s); err == nil {
		fields[key] = token.DecimalValue(d)
	}
}

func setPercent(fields map[token.FieldKey]token.Value, key token.FieldKey, fraction string) {
	if fraction == "" {
		return
	}
	if d, err := decimal.NewFromString(fraction); err == nil {
		fields[key] = token.DecimalValue(d.Mul(decimal.NewFromInt(100)))
	}
}

func setInt(fields map[token.FieldKey]token.Value, key token.FieldKey, s string) {
	if s == "" {
		return
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		fields[key] = token.IntValue(n)
	}
}

// setFlag records a GoPlus "0"/"1" flag. An empty string means the API had
// no signal, which stays absent rather than defaulting to false.
func setFlag(fields map[token.FieldKey]token.Value, key token.FieldKey, s string) {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		fields[key] = token.BoolValue(true)
	case "0", "false", "no":
		fields[key] = token.BoolValue(false)
	}
}
