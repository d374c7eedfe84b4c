// Package scraper turns AllKeyShop pages into structured price data: the
// quicksearch endpoint into search results, game pages into offer sets and
// the deals widget into free-game promotions.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	searchAPIURL     = "https://www.allkeyshop.com/blog/wp-admin/admin-ajax.php"
	offerRedirectURL = "https://www.allkeyshop.com/redirection/offer/eur/%d?locale=en&merchant=%d"
	dealsWidgetURL   = "https://widget.allkeyshop.com/lib/generate/widget?widgetType=deals&locale=en_GB&currency=eur&typeList=free&console=all&backgroundColor=transparent&priceBackgroundColor=147ac3&borderWidth=0&borderColor=000000&apiKey=aks"

	// DefaultCacheTTL is how long a price snapshot stays valid.
	DefaultCacheTTL = 10 * time.Minute
)

// Fetcher is the outbound HTTP access the scraper depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ParseError reports a markup or JSON shape mismatch in an upstream
// response.
type ParseError struct {
	URL string
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Msg)
}

// Scraper scrapes AllKeyShop through a rate-limited fetcher. Price
// snapshots are cached in memory for a fixed TTL, so UI-triggered refreshes
// racing a background poll hit the cache instead of the site.
type Scraper struct {
	fetcher Fetcher
	cache   *priceCache
	log     zerolog.Logger
}

// New creates a Scraper on top of the given fetcher with the default
// cache TTL.
func New(f Fetcher, log zerolog.Logger) *Scraper {
	return NewWithTTL(f, DefaultCacheTTL, log)
}

// NewWithTTL creates a Scraper with a custom price-cache TTL.
func NewWithTTL(f Fetcher, ttl time.Duration, log zerolog.Logger) *Scraper {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Scraper{
		fetcher: f,
		cache:   newPriceCache(ttl),
		log:     log.With().Str("component", "scraper").Logger(),
	}
}

// ClearCache drops all cached price snapshots.
func (s *Scraper) ClearCache() {
	s.cache.clear()
}
