package provider

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
	"github.com/kunmmi/zagama/logger"
)

// ERC-20 function selectors read via eth_call.
const (
	selName        = "0x06fdde03"
	selSymbol      = "0x95d89b41"
	selDecimals    = "0x313ce567"
	selTotalSupply = "0x18160ddd"
)

// RPC is the raw-ledger fallback provider: it reads the minimal structural
// fields straight from public JSON-RPC endpoints, trying each configured
// endpoint for a chain in order.
type RPC struct {
	cfg config.RPCConfig
	api *apiClient
	log *logger.Log
	now func() time.Time
}

func NewRPC(cfg config.RPCConfig) *RPC {
	return &RPC{
		cfg: cfg,
		api: newAPIClient(NameRPC, cfg.Timeout.Std(), cfg.RequestsPerSecond, cfg.BurstSize),
		log: logger.GetLogger(),
		now: time.Now,
	}
}

func (r *RPC) Name() string             { return NameRPC }
func (r *RPC) ChainConfidence() float64 { return 0.5 }

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchChainCandidates considers an address a candidate on a chain when the
// ledger reports deployed bytecode there.
func (r *RPC) FetchChainCandidates(ctx context.Context, addr token.Address) ([]token.ChainCandidate, error) {
	return probeChains(ctx, r.chains(), func(ctx context.Context, chain token.ChainID) (*token.ChainCandidate, error) {
		code, err := r.call(ctx, chain, "eth_getCode", string(addr), "latest")
		if err != nil {
			return nil, err
		}
		if len(code) <= 2 {
			return nil, nil
		}
		return &token.ChainCandidate{Chain: chain}, nil
	})
}

func (r *RPC) FetchTokenFacts(ctx context.Context, addr token.Address, chain token.ChainID) (*token.ProviderResult, error) {
	fields := make(map[token.FieldKey]token.Value)

	name, errName := r.ethCall(ctx, chain, addr, selName)
	symbol, errSym := r.ethCall(ctx, chain, addr, selSymbol)
	decimalsHex, errDec := r.ethCall(ctx, chain, addr, selDecimals)
	supplyHex, errSup := r.ethCall(ctx, chain, addr, selTotalSupply)

	if errName != nil && errSym != nil && errDec != nil && errSup != nil {
		// All four reads failed; surface the first error uniformly.
		return nil, errName
	}

	if s := decodeABIString(name); s != "" {
		fields[token.FieldName] = token.StringValue(s)
	}
	if s := decodeABIString(symbol); s != "" {
		fields[token.FieldSymbol] = token.StringValue(s)
	}

	var decimals int64 = -1
	if n, ok := decodeABIUint(decimalsHex); ok {
		decimals = n.Int64()
		fields[token.FieldDecimals] = token.IntValue(decimals)
	}
	if n, ok := decodeABIUint(supplyHex); ok {
		supply := decimal.NewFromBigInt(n, 0)
		if decimals > 0 {
			supply = supply.Shift(int32(-decimals))
		}
		fields[token.FieldTotalSupply] = token.DecimalValue(supply)
	}

	return &token.ProviderResult{
		Provider:   NameRPC,
		Confidence: r.ChainConfidence(),
		FetchedAt:  r.now().UTC(),
		Fields:     fields,
	}, nil
}

func (r *RPC) ethCall(ctx context.Context, chain token.ChainID, addr token.Address, selector string) (string, error) {
	return r.call(ctx, chain, "eth_call", map[string]string{"to": string(addr), "data": selector}, "latest")
}

// call tries each endpoint configured for the chain in order and returns the
// first successful result.
func (r *RPC) call(ctx context.Context, chain token.ChainID, method string, params ...interface{}) (string, error) {
	endpoints := r.cfg.Endpoints[string(chain)]
	if len(endpoints) == 0 {
		return "", token.NewProviderError(NameRPC, token.ErrKindUnreachable,
			fmt.Errorf("no RPC endpoints configured for chain %s", chain))
	}

	var lastErr error
	for _, endpoint := range endpoints {
		if ctx.Err() != nil {
			return "", token.NewProviderError(NameRPC, token.ErrKindTimeout, ctx.Err())
		}
		req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
		var resp rpcResponse
		if err := r.api.postJSON(ctx, endpoint, req, &resp); err != nil {
			r.log.WithComponent(NameRPC).WithFields(logger.Fields{
				"endpoint": endpoint,
				"method":   method,
			}).WithError(err).Debug("endpoint failed, trying next")
			lastErr = err
			continue
		}
		if resp.Error != nil {
			lastErr = token.NewProviderError(NameRPC, token.ErrKindMalformed,
				fmt.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message))
			continue
		}
		return resp.Result, nil
	}
	if lastErr == nil {
		lastErr = errors.New("all endpoints failed")
	}
	return "", lastErr
}

func (r *RPC) chains() []token.ChainID {
	chains := make([]token.ChainID, 0, len(r.cfg.Endpoints))
	for _, chain := range token.AllChains() {
		if len(r.cfg.Endpoints[string(chain)]) > 0 {
			chains = append(chains, chain)
		}
	}
	return chains
}

// decodeABIUint parses a 0x-prefixed 32-byte word as an unsigned integer.
func decodeABIUint(result string) (*big.Int, bool) {
	raw := strings.TrimPrefix(result, "0x")
	if raw == "" {
		return nil, false
	}
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return nil, false
	}
	return n, true
}

// decodeABIString decodes an ABI-encoded dynamic string (offset, length,
// data), falling back to a right-padded bytes32 for legacy tokens.
func decodeABIString(result string) string {
	raw := strings.TrimPrefix(result, "0x")
	data, err := hex.DecodeString(raw)
	if err != nil || len(data) == 0 {
		return ""
	}

	// The offset and length words come straight off the wire; compare
	// against the payload size by subtraction from len(data) so a huge
	// word can never overflow into a negative slice bound.
	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32])
		if offset.IsInt64() && offset.Int64() <= int64(len(data))-32 {
			start := offset.Int64()
			length := new(big.Int).SetBytes(data[start : start+32])
			if length.IsInt64() && length.Int64() <= int64(len(data))-start-32 {
				return sanitizeABIText(data[start+32 : start+32+length.Int64()])
			}
		}
	}

	// bytes32-style value: trim trailing zero padding.
	if len(data) == 32 {
		return sanitizeABIText(data)
	}
	return ""
}

func sanitizeABIText(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
