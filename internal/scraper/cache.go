package scraper

import (
	"strings"
	"sync"
	"time"

	"aks-monitor/internal/models"
)

// priceCache is an expiring map of lowercased page URL (or game name, for
// legacy name-only lookups) to price snapshot.
type priceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*models.GamePrice
}

func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{
		ttl:     ttl,
		entries: make(map[string]*models.GamePrice),
	}
}

func (c *priceCache) get(key string) *models.GamePrice {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[strings.ToLower(key)]
	if !ok {
		return nil
	}
	if time.Since(cached.RetrievedAt) >= c.ttl {
		delete(c.entries, strings.ToLower(key))
		return nil
	}
	return cached
}

func (c *priceCache) put(key string, price *models.GamePrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(key)] = price
}

func (c *priceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.GamePrice)
}
