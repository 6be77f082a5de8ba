package token

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValueKind discriminates the Value union.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindBool
	KindInt
	KindDecimal
)

// Value is a small tagged union for field values. Monetary amounts and
// percentages are decimals, never floats.
type Value struct {
	Kind ValueKind
	Str  string
	Bool bool
	Int  int64
	Dec  decimal.Decimal
}

func StringValue(s string) Value          { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value              { return Value{Kind: KindInt, Int: i} }
func DecimalValue(d decimal.Decimal) Value { return Value{Kind: KindDecimal, Dec: d} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindDecimal:
		return v.Dec.Equal(o.Dec)
	}
	return false
}

// String renders the payload for logs and sourceError entries.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDecimal:
		return v.Dec.String()
	}
	return ""
}

// MarshalJSON emits the bare payload, not the union wrapper, so records
// serialize the way callers expect ("buy_tax": "2.5", "is_verified": true).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindDecimal:
		return json.Marshal(v.Dec)
	default:
		return json.Marshal(v.Str)
	}
}
