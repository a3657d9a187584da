package quotes

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider wraps a Provider with a short-lived TTL cache so interactive
// commands and an overlapping tick reuse quotes fetched inside one interval.
// Only successful lookups are cached; failures always retry upstream.
type CachedProvider struct {
	inner Provider
	cache *gocache.Cache
}

// NewCachedProvider wraps the given provider with a TTL cache.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// Quote returns a cached price when fresh, otherwise fetches upstream.
func (p *CachedProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if cached, ok := p.cache.Get(key); ok {
		return cached.(float64), nil
	}

	price, err := p.inner.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}

	p.cache.SetDefault(key, price)
	return price, nil
}
