package token

import (
	"errors"
	"fmt"
)

// Fatal errors the caller can receive from an analysis. Everything else is
// absorbed into TokenRecord.SourceErrors.
var (
	// ErrInvalidAddress rejects input before any network activity.
	ErrInvalidAddress = errors.New("invalid contract address")

	// ErrAggregationFailed fires only when every provider erred or timed
	// out and zero fields were populated.
	ErrAggregationFailed = errors.New("aggregation failed: no provider returned any data")
)

// ProviderErrorKind is the closed classification of provider failures.
type ProviderErrorKind string

const (
	ErrKindTimeout     ProviderErrorKind = "timeout"
	ErrKindRateLimited ProviderErrorKind = "rate_limited"
	ErrKindMalformed   ProviderErrorKind = "malformed"
	ErrKindUnreachable ProviderErrorKind = "unreachable"
)

// ProviderError is the uniform error a provider call returns. It is always
// recovered at the aggregation layer and never propagated individually.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a provider name and kind.
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
