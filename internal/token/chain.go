package token

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ChainID identifies a supported network. The set is closed: adding a chain
// means adding a constant here plus entries in the provider chain maps.
type ChainID string

const (
	ChainEthereum ChainID = "ethereum"
	ChainBSC      ChainID = "bsc"
	ChainBase     ChainID = "base"

	// ChainUnknown marks an unresolved network. It is only ever an
	// intermediate value: resolution replaces it with the configured
	// default before any record is built.
	ChainUnknown ChainID = "unknown"
)

// AllChains lists the resolvable networks in default priority order.
func AllChains() []ChainID {
	return []ChainID{ChainEthereum, ChainBSC, ChainBase}
}

// Valid reports whether c names a resolvable network (Unknown is not one).
func (c ChainID) Valid() bool {
	switch c {
	case ChainEthereum, ChainBSC, ChainBase:
		return true
	}
	return false
}

func (c ChainID) String() string { return string(c) }

// NumericID returns the EVM chain id used by providers that key on numbers.
func (c ChainID) NumericID() int {
	switch c {
	case ChainEthereum:
		return 1
	case ChainBSC:
		return 56
	case ChainBase:
		return 8453
	}
	return 0
}

// ParseChain maps a chain name or numeric id string to a ChainID.
func ParseChain(s string) (ChainID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ethereum", "eth", "1":
		return ChainEthereum, nil
	case "bsc", "binance-smart-chain", "56":
		return ChainBSC, nil
	case "base", "8453":
		return ChainBase, nil
	}
	return ChainUnknown, fmt.Errorf("unsupported chain %q", s)
}

// ChainFromNumericID maps an EVM chain id to a ChainID.
func ChainFromNumericID(id int) (ChainID, bool) {
	for _, c := range AllChains() {
		if c.NumericID() == id {
			return c, true
		}
	}
	return ChainUnknown, false
}

// ChainCandidate is one network a provider reports the address as living
// on, with whatever corroborating liquidity signal the same call exposed.
type ChainCandidate struct {
	Chain     ChainID
	Liquidity decimal.Decimal
	// HasLiquidity distinguishes a reported zero from no signal at all.
	HasLiquidity bool
}
