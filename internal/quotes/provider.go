// Package quotes provides price lookup providers for stocks and crypto.
package quotes

import (
	"context"
)

// Provider fetches the current price for a symbol. Every failure (unknown
// symbol, network error, malformed upstream response) comes back as an error
// wrapping apperrors.ErrPriceUnavailable; the evaluator treats all of them as
// "no data for this tick".
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (float64, error)
}

// LookupFunc adapts a plain function to the Provider interface.
type LookupFunc func(ctx context.Context, symbol string) (float64, error)

// FuncProvider wraps a LookupFunc as a named Provider.
type FuncProvider struct {
	ProviderName string
	Fn           LookupFunc
}

// Name returns the provider name.
func (p FuncProvider) Name() string {
	return p.ProviderName
}

// Quote calls the wrapped function.
func (p FuncProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	return p.Fn(ctx, symbol)
}
