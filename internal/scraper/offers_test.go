package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aks-monitor/internal/models"
)

type fetchFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// offersJSON holds a key offer with a cheaper card fee price, an account
// offer, a pricier Deluxe key and one malformed entry that must be skipped.
const offersJSON = `{"prices":[` +
	`{"id":101,"price":10,"originalPrice":20,"merchantName":"GameStore","merchant":5,"isOfficial":false,"account":false,"priceCard":9.5,"edition":"1","region":2},` +
	`{"id":102,"price":8,"merchantName":"AccShop","merchant":7,"account":true},` +
	`{"id":103,"price":12,"merchantName":"DeluxeShop","merchant":9,"edition":"2"},` +
	`"not an offer"` +
	`],"editions":{"1":{"name":"Standard"},"2":{"name":"Deluxe"}},"regions":{"2":{"region_name":"Europe"}}}`

const pageURL = "https://www.allkeyshop.com/blog/buy-testgame-cd-key-compare-prices/"

func sameLinePage(data string) string {
	return "<html><body><script>\nvar gamePageTrans = " + data + ";\n</script></body></html>"
}

func multiLinePage(data string) string {
	// Pretty-print the object across lines, terminated by a comment.
	spread := strings.ReplaceAll(data, "],", "],\n")
	return "<html><body><script>\nvar gamePageTrans = " + spread + ";\n// end of data\n</script></body></html>"
}

func scriptIDPage(data string) string {
	// Everything on one line, so only the script tag lookup can find it.
	return `<html><head><script id="aks-offers-js-extra">var gamePageTrans = ` + data + `;</script></head><body><p>minified</p></body></html>`
}

func TestGetPriceExtractionStrategies(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"assignment on its own line", sameLinePage(offersJSON)},
		{"multi-line with trailing comment", multiLinePage(offersJSON)},
		{"inline script tag by id", scriptIDPage(offersJSON)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScraper(&fakeFetcher{body: []byte(tt.page)})

			price, err := s.GetPrice(context.Background(), pageURL, "Test Game")
			require.NoError(t, err)
			require.NotNil(t, price)

			assert.True(t, price.Available)
			assert.Equal(t, "Test Game", price.GameName)
			assert.Equal(t, pageURL, price.PageURL)

			// Card fee price undercuts the base key price.
			assert.Equal(t, 9.5, price.KeyPrice)
			assert.Equal(t, "GameStore", price.KeySeller)
			assert.Equal(t, fmt.Sprintf(offerRedirectURL, 101, 5), price.KeyURL)

			assert.Equal(t, 8.0, price.AccountPrice)
			assert.Equal(t, "AccShop", price.AccountSeller)

			// Keys win the overall slot even when an account is cheaper.
			assert.Equal(t, 9.5, price.Price)
			assert.Equal(t, "GameStore", price.Seller)

			// The malformed fourth entry is dropped, the rest survive.
			require.Len(t, price.Offers, 3)
			assert.Equal(t, "Europe", price.Offers[0].Region)
			assert.Equal(t, "Standard", price.Offers[1].Edition, "missing edition defaults to Standard")
			assert.Equal(t, "Deluxe", price.Offers[2].Edition)
		})
	}
}

func TestGetPriceCachesByPageURL(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sameLinePage(offersJSON))}
	s := newTestScraper(fetcher)

	first, err := s.GetPrice(context.Background(), pageURL, "Test Game")
	require.NoError(t, err)
	second, err := s.GetPrice(context.Background(), pageURL, "Test Game")
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls, "second lookup must be served from cache")
	assert.Same(t, first, second)

	s.ClearCache()
	_, err = s.GetPrice(context.Background(), pageURL, "Test Game")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestGetPriceNoOffers(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(sameLinePage(`{"prices":[],"editions":{},"regions":{}}`))}
	s := newTestScraper(fetcher)

	price, err := s.GetPrice(context.Background(), pageURL, "Delisted Game")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.False(t, price.Available)
	assert.Zero(t, price.Price)

	// Unavailable snapshots are not cached, the next call retries.
	_, err = s.GetPrice(context.Background(), pageURL, "Delisted Game")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestGetPriceErrors(t *testing.T) {
	t.Run("empty page URL", func(t *testing.T) {
		s := newTestScraper(&fakeFetcher{})
		_, err := s.GetPrice(context.Background(), "  ", "Game")
		assert.Error(t, err)
	})

	t.Run("fetch failure propagates", func(t *testing.T) {
		s := newTestScraper(&fakeFetcher{err: errors.New("boom")})
		_, err := s.GetPrice(context.Background(), pageURL, "Game")
		assert.EqualError(t, err, "boom")
	})

	t.Run("missing dataset", func(t *testing.T) {
		s := newTestScraper(&fakeFetcher{body: []byte("<html><body>nothing here</body></html>")})
		_, err := s.GetPrice(context.Background(), pageURL, "Game")
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, pageURL, parseErr.URL)
	})
}

func TestGetPriceByName(t *testing.T) {
	searchResp := searchBody(t, `
<li class="ls-results-row">
  <a class="ls-results-row-link" href="`+pageURL+`"></a>
  <h2 class="ls-results-row-game-title">Test Game</h2>
  <div class="ls-results-row-game-infos">PC - 2021</div>
  <div class="ls-results-row-price" data-price="10.00" data-stock="in_stock"></div>
</li>`)

	fetcher := fetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		if strings.Contains(url, "quicksearch") {
			return searchResp, nil
		}
		if url == pageURL {
			return []byte(sameLinePage(offersJSON)), nil
		}
		return nil, fmt.Errorf("unexpected url %s", url)
	})
	s := newTestScraper(fetcher)

	price, err := s.GetPriceByName(context.Background(), "Test Game")
	require.NoError(t, err)
	assert.Equal(t, 9.5, price.KeyPrice)
	assert.Equal(t, 8.0, price.AccountPrice)

	// The snapshot is cached under the name as well.
	again, err := s.GetPriceByName(context.Background(), "Test Game")
	require.NoError(t, err)
	assert.Same(t, price, again)
}

func TestGetPriceByNameNoResults(t *testing.T) {
	s := newTestScraper(&fakeFetcher{body: []byte(`{"results":""}`)})
	_, err := s.GetPriceByName(context.Background(), "Unknown Game")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBestOfferTieBreak(t *testing.T) {
	offer := func(id int, price float64, edition string) models.Offer {
		return models.Offer{OfferID: id, Price: price, Edition: edition}
	}
	deluxeCheap := offer(1, 5, "Deluxe")
	standardMid := offer(2, 7, "Standard")
	standardPricey := offer(3, 9, "Standard")

	best := bestOffer([]models.Offer{deluxeCheap, standardMid, standardPricey})
	require.NotNil(t, best)
	assert.Equal(t, 2, best.OfferID, "cheapest Standard edition wins over a cheaper Deluxe")

	best = bestOffer([]models.Offer{deluxeCheap})
	require.NotNil(t, best)
	assert.Equal(t, 1, best.OfferID, "falls back to the cheapest offer")

	assert.Nil(t, bestOffer(nil))
}
