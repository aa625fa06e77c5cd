package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultfolio/vaultfolio/internal/metrics"
)

const (
	currentPriceTTL = 60 * time.Second
	dayAgoPriceTTL  = 5 * time.Minute
)

type cacheEntry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// priceCache memoizes prices per market identifier with a fixed TTL.
// Shared across concurrent report requests, so all access is mutex-guarded.
type priceCache struct {
	name string // metrics label
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newPriceCache(name string, ttl time.Duration, now func() time.Time) *priceCache {
	return &priceCache{
		name:    name,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *priceCache) get(id string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		metrics.PriceCacheLookups.WithLabelValues(c.name, "miss").Inc()
		return decimal.Zero, false
	}
	metrics.PriceCacheLookups.WithLabelValues(c.name, "hit").Inc()
	return entry.price, true
}

func (c *priceCache) set(id string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = cacheEntry{price: price, fetchedAt: c.now()}
}
