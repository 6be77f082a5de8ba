package token

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderResult is the outcome of one successful provider call. Immutable
// once constructed; the aggregator only reads it.
type ProviderResult struct {
	Provider   string
	Confidence float64
	FetchedAt  time.Time
	Fields     map[FieldKey]Value
}

// SourcedValue is a merged field value plus the provider it came from.
type SourcedValue struct {
	Value  Value  `json:"value"`
	Source string `json:"source"`
}

// SourceIssue records a recovered provider failure or a discarded conflict.
// Ordered by append time; never surfaced as a caller error.
type SourceIssue struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// TokenRecord is the merged view over all providers for one address on one
// chain. Owned by the analysis that built it and never mutated afterwards.
type TokenRecord struct {
	Address      Address                    `json:"address"`
	Chain        ChainID                    `json:"chain"`
	Fields       map[FieldKey]SourcedValue  `json:"fields"`
	Completeness float64                    `json:"completeness"`
	LowData      bool                       `json:"low_data"`
	SourceErrors []SourceIssue              `json:"source_errors"`
}

// Get returns the merged value for key, if populated.
func (r *TokenRecord) Get(key FieldKey) (SourcedValue, bool) {
	sv, ok := r.Fields[key]
	return sv, ok
}

// BoolField returns the field as a bool; second result is false when the
// field is absent or not a bool.
func (r *TokenRecord) BoolField(key FieldKey) (bool, bool) {
	sv, ok := r.Fields[key]
	if !ok || sv.Value.Kind != KindBool {
		return false, false
	}
	return sv.Value.Bool, true
}

// DecimalField returns the field as a decimal, accepting int payloads too.
func (r *TokenRecord) DecimalField(key FieldKey) (decimal.Decimal, bool) {
	sv, ok := r.Fields[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	switch sv.Value.Kind {
	case KindDecimal:
		return sv.Value.Dec, true
	case KindInt:
		return decimal.NewFromInt(sv.Value.Int), true
	}
	return decimal.Decimal{}, false
}

// IntField returns the field as an int64.
func (r *TokenRecord) IntField(key FieldKey) (int64, bool) {
	sv, ok := r.Fields[key]
	if !ok {
		return 0, false
	}
	switch sv.Value.Kind {
	case KindInt:
		return sv.Value.Int, true
	case KindDecimal:
		return sv.Value.Dec.IntPart(), true
	}
	return 0, false
}

// StringField returns the field as a string.
func (r *TokenRecord) StringField(key FieldKey) (string, bool) {
	sv, ok := r.Fields[key]
	if !ok || sv.Value.Kind != KindString {
		return "", false
	}
	return sv.Value.Str, true
}
