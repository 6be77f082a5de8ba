package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// Etherscan is the explorer provider, speaking the multichain v2 API
// (module/action query pairs plus a chainid parameter). It is authoritative
// for verification and deployer fields.
type Etherscan struct {
	cfg config.ProviderConfig
	api *apiClient
	log *logger.Log
	now func() time.Time
}

func NewEtherscan(cfg config.ProviderConfig) *Etherscan {
	return &Etherscan{
		cfg: cfg,
		api: newAPIClient(NameEtherscan, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.BurstSize),
		log: logger.GetLogger(),
		now: time.Now,
	}
}

func (e *Etherscan) Name() string             { return NameEtherscan }
func (e *Etherscan) ChainConfidence() float64 { return 0.7 }

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanSource struct {
	SourceCode   string `json:"SourceCode"`
	ABI          string `json:"ABI"`
	ContractName string `json:"ContractName"`
	Proxy        string `json:"Proxy"`
}

type etherscanCreation struct {
	ContractAddress string `json:"contractAddress"`
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
}

type etherscanTx struct {
	To string `json:"to"`
}

// FetchChainCandidates checks for deployed bytecode on each network via the
// explorer's eth_getCode proxy, all networks probed in parallel.
func (e *Etherscan) FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error) {
	return probeChains(ctx, token.AllChains(), func(ctx context.Context, chain token.ChainID) (*token.ChainCandidate, error) {
		code, err := e.getCode(ctx, addr, chain)
		if err != nil {
			return nil, err
		}
		if len(code) <= 2 { // "0x" means no contract at this address
			return nil, nil
		}
		return &token.ChainCandidate{Chain: chain}, nil
	})
}

func (e *Etherscan) FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error) {
	fields := make(map[token.FieldKey]token.Value)

	src, err := e.contractSource(ctx, addr, chain)
	if err != nil {
		return nil, err
	}
	if src != nil {
		verified := src.SourceCode != "" && !strings.Contains(src.ABI, "not verified")
		fields[token.FieldVerified] = token.BoolValue(verified)
		if src.Proxy == "1" {
			fields[token.FieldProxyContract] = token.BoolValue(true)
		}
		if verified {
			setString(fields, token.FieldName, src.ContractName)
		}
	}

	creator, err := e.contractCreator(ctx, addr, chain)
	if err != nil {
		e.log.WithComponent(NameEtherscan).WithFields(logger.Fields{
			"address": string(addr),
			"chain":   string(chain),
		}).WithError(err).Debug("creator lookup failed")
	}
	if err == nil && creator != "" {
		fields[token.FieldCreatorAddress] = token.StringValue(creator)

		// Best effort: how many other contracts this deployer has created.
		if n, err := e.creationCount(ctx, creator, chain); err == nil && n > 0 {
			fields[token.FieldDeployerCreation] = token.IntValue(n)
		}
	}

	return &token.ProviderResult{
		Provider:   NameEtherscan,
		Confidence: e.ChainConfidence(),
		FetchedAt:  e.now().UTC(),
		Fields:     fields,
	}, nil
}

func (e *Etherscan) contractSource(ctx context.Context, addr token.Address, chain token.ChainID) (*etherscanSource, error) {
	env, err := e.query(ctx, chain, url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {string(addr)},
	})
	if err != nil {
		return nil, err
	}
	var sources []etherscanSource
	if err := json.Unmarshal(env.Result, &sources); err != nil || len(sources) == 0 {
		return nil, nil
	}
	return &sources[0], nil
}

func (e *Etherscan) contractCreator(ctx context.Context, addr token.Address, chain token.ChainID) (string, error) {
	env, err := e.query(ctx, chain, url.Values{
		"module":            {"contract"},
		"action":            {"getcontractcreation"},
		"contractaddresses": {string(addr)},
	})
	if err != nil {
		return "", err
	}
	var creations []etherscanCreation
	if err := json.Unmarshal(env.Result, &creations); err != nil || len(creations) == 0 {
		return "", nil
	}
	return strings.ToLower(creations[0].ContractCreator), nil
}

// creationCount counts contract-creation transactions (empty "to" field) in
// the deployer's recent history.
func (e *Etherscan) creationCount(ctx context.Context, creator string, chain token.ChainID) (int64, error) {
	env, err := e.query(ctx, chain, url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {creator},
		"page":    {"1"},
		"offset":  {"100"},
		"sort":    {"desc"},
	})
	if err != nil {
		return 0, err
	}
	var txs []etherscanTx
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		return 0, nil
	}
	var n int64
	for _, tx := range txs {
		if tx.To == "" {
			n++
		}
	}
	return n, nil
}

func (e *Etherscan) getCode(ctx context.Context, addr token.Address, chain token.ChainID) (string, error) {
	env, err := e.query(ctx, chain, url.Values{
		"module":  {"proxy"},
		"action":  {"eth_getCode"},
		"address": {string(addr)},
		"tag":     {"latest"},
	})
	if err != nil {
		return "", err
	}
	var code string
	if err := json.Unmarshal(env.Result, &code); err != nil {
		return "", nil
	}
	return code, nil
}

func (e *Etherscan) query(ctx context.Context, chain token.ChainID, params url.Values) (*etherscanEnvelope, error) {
	params.Set("chainid", fmt.Sprintf("%d", chain.NumericID()))
	if e.cfg.APIKey != "" {
		params.Set("apikey", e.cfg.APIKey)
	}
	endpoint := fmt.Sprintf("%s?%s", strings.TrimRight(e.cfg.BaseURL, "/"), params.Encode())

	var env etherscanEnvelope
	if err := e.api.getJSON(ctx, endpoint, nil, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return &etherscanEnvelope{}, nil
		}
		return nil, err
	}
	return &env, nil
}
