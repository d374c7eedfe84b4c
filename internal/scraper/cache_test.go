package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"aks-monitor/internal/models"
)

func TestPriceCacheExpiry(t *testing.T) {
	c := newPriceCache(50 * time.Millisecond)

	price := &models.GamePrice{GameName: "Test Game", RetrievedAt: time.Now()}
	c.put("https://example.com/Page", price)

	assert.Same(t, price, c.get("https://example.com/page"), "lookups are case-insensitive")

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, c.get("https://example.com/page"), "expired entries are evicted")
}

func TestPriceCacheClear(t *testing.T) {
	c := newPriceCache(time.Minute)
	c.put("key", &models.GamePrice{RetrievedAt: time.Now()})

	c.clear()
	assert.Nil(t, c.get("key"))
}
