package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kunmmi/zagama/config"
	"github.com/kunmmi/zagama/internal/token"
)

// ABI-encoded dynamic string "Pepe": offset word, length word, padded data.
const abiName = "0x" +
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000004" +
	"5065706500000000000000000000000000000000000000000000000000000000"

// bytes32-style legacy symbol "PEPE".
const abiSymbolBytes32 = "0x5045504500000000000000000000000000000000000000000000000000000000"

const abiDecimals = "0x0000000000000000000000000000000000000000000000000000000000000012"

// 1000 * 10^18
const abiSupply = "0x00000000000000000000000000000000000000000000003635c9adc5dea00000"

func rpcHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad RPC request: %v", err)
			return
		}
		result := "0x"
		switch req.Method {
		case "eth_getCode":
			result = "0x6080604052"
		case "eth_call":
			call := req.Params[0].(map[string]interface{})
			switch call["data"] {
			case selName:
				result = abiName
			case selSymbol:
				result = abiSymbolBytes32
			case selDecimals:
				result = abiDecimals
			case selTotalSupply:
				result = abiSupply
			}
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%q}`, result)
	}
}

func rpcConfig(endpoints ...string) config.RPCConfig {
	return config.RPCConfig{
		Enabled:           true,
		Endpoints:         map[string][]string{"ethereum": endpoints},
		Timeout:           config.Duration(2 * time.Second),
		RequestsPerSecond: 1000,
		BurstSize:         100,
	}
}

func TestRPCFetchTokenFacts(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t))
	defer srv.Close()

	r := NewRPC(rpcConfig(srv.URL))
	res, err := r.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}

	if v := res.Fields[token.FieldName]; v.Str != "Pepe" {
		t.Fatalf("name = %+v", v)
	}
	if v := res.Fields[token.FieldSymbol]; v.Str != "PEPE" {
		t.Fatalf("symbol = %+v", v)
	}
	if v := res.Fields[token.FieldDecimals]; v.Int != 18 {
		t.Fatalf("decimals = %+v", v)
	}
	supply, ok := res.Fields[token.FieldTotalSupply]
	if !ok || !supply.Dec.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("total_supply = %+v, want 1000 after decimals shift", supply)
	}
}

func TestRPCFetchTokenFactsCorruptStringResult(t *testing.T) {
	// name() returns an ABI payload whose length word is near MaxInt64, as a
	// broken public endpoint might; the fetch must survive and simply skip
	// the field.
	corruptName := "0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000007fffffffffffffef" +
		"5065706500000000000000000000000000000000000000000000000000000000"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad RPC request: %v", err)
			return
		}
		result := "0x"
		if req.Method == "eth_call" {
			call := req.Params[0].(map[string]interface{})
			switch call["data"] {
			case selName:
				result = corruptName
			case selDecimals:
				result = abiDecimals
			}
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%q}`, result)
	}))
	defer srv.Close()

	r := NewRPC(rpcConfig(srv.URL))
	res, err := r.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Fields[token.FieldName]; ok {
		t.Fatalf("name decoded from corrupt payload: %+v", res.Fields[token.FieldName])
	}
	if v := res.Fields[token.FieldDecimals]; v.Int != 18 {
		t.Fatalf("decimals = %+v", v)
	}
}

func TestRPCEndpointFallback(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(rpcHandler(t))
	defer good.Close()

	r := NewRPC(rpcConfig(bad.URL, good.URL))
	res, err := r.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum)
	if err != nil {
		t.Fatal(err)
	}
	if v := res.Fields[token.FieldName]; v.Str != "Pepe" {
		t.Fatalf("name = %+v after fallback", v)
	}
}

func TestRPCAllCallsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`)
	}))
	defer srv.Close()

	r := NewRPC(rpcConfig(srv.URL))
	if _, err := r.FetchTokenFacts(context.Background(), testAddr, token.ChainEthereum); err == nil {
		t.Fatal("expected error when every call reverts")
	}
}

func TestRPCChainCandidates(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t))
	defer srv.Close()

	r := NewRPC(rpcConfig(srv.URL))
	candidates, err := r.FetchChainCandidates(context.Background(), testAddr)
	if err != nil {
		t.Fatal(err)
	}
	// Only ethereum has endpoints configured, and it reports bytecode.
	if len(candidates) != 1 || candidates[0].Chain != token.ChainEthereum {
		t.Fatalf("candidates = %+v", candidates)
	}
}

func TestDecodeABIString(t *testing.T) {
	if got := decodeABIString(abiName); got != "Pepe" {
		t.Fatalf("dynamic string = %q", got)
	}
	if got := decodeABIString(abiSymbolBytes32); got != "PEPE" {
		t.Fatalf("bytes32 string = %q", got)
	}
	if got := decodeABIString("0x"); got != "" {
		t.Fatalf("empty result = %q", got)
	}
}

// A corrupt endpoint can return arbitrary offset and length words; decoding
// must reject them instead of panicking on an out-of-range slice.
func TestDecodeABIStringCorruptWords(t *testing.T) {
	const (
		zeroWord  = "0000000000000000000000000000000000000000000000000000000000000000"
		dataWord  = "5065706500000000000000000000000000000000000000000000000000000000"
		hugeWord  = "0000000000000000000000000000000000000000000000007fffffffffffffff"
		hugeLen   = "0000000000000000000000000000000000000000000000007fffffffffffffef"
		overWord  = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
		offset32  = "0000000000000000000000000000000000000000000000000000000000000020"
		largeish  = "0000000000000000000000000000000000000000000000000000000000000021"
	)

	cases := map[string]string{
		"offset near MaxInt64":    "0x" + hugeWord + zeroWord,
		"length near MaxInt64":    "0x" + offset32 + hugeLen + dataWord,
		"offset exceeds int64":    "0x" + overWord + zeroWord,
		"length exceeds int64":    "0x" + offset32 + overWord + dataWord,
		"offset past payload":     "0x" + largeish + zeroWord,
		"length one past payload": "0x" + offset32 + largeish + dataWord,
	}
	for name, result := range cases {
		if got := decodeABIString(result); got != "" {
			t.Errorf("%s: decoded %q, want rejection", name, got)
		}
	}
}
