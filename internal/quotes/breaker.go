package quotes

import (
	"context"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/resilience"
)

// BreakerProvider wraps a Provider with a circuit breaker so a dead upstream
// fails fast instead of burning the per-call timeout on every symbol of every
// tick. A rejected call surfaces as ErrPriceUnavailable like any other quote
// failure.
type BreakerProvider struct {
	inner   Provider
	breaker *resilience.CircuitBreaker
}

// NewBreakerProvider wraps the given provider with a circuit breaker.
func NewBreakerProvider(inner Provider, cfg resilience.CircuitBreakerConfig) *BreakerProvider {
	return &BreakerProvider{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(inner.Name(), cfg),
	}
}

// Name returns the wrapped provider's name.
func (p *BreakerProvider) Name() string {
	return p.inner.Name()
}

// State exposes the breaker state for diagnostics.
func (p *BreakerProvider) State() resilience.CircuitState {
	return p.breaker.State()
}

// Quote fetches a price through the circuit breaker.
func (p *BreakerProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := p.breaker.Execute(func() error {
		var err error
		price, err = p.inner.Quote(ctx, symbol)
		return err
	})
	if err != nil {
		if apperrors.Is(err, resilience.ErrCircuitOpen) {
			return 0, apperrors.NewQuoteError(p.Name(), symbol, err)
		}
		return 0, err
	}
	return price, nil
}
