package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"aks-monitor/internal/models"
)

var imageURLPattern = regexp.MustCompile(`url\('([^']+)'\)`)

// searchEnvelope is the quicksearch response: the results field is an HTML
// fragment of <li> rows, not structured data.
type searchEnvelope struct {
	Results string `json:"results"`
}

// Search queries the quicksearch endpoint and returns the parsed result
// rows in page order. It never fails: an empty or whitespace query, a
// transport error or an unparseable response all degrade to an empty slice
// with a logged warning.
func (s *Scraper) Search(ctx context.Context, query string) []models.SearchResult {
	var results []models.SearchResult
	if strings.TrimSpace(query) == "" {
		return results
	}

	searchURL := fmt.Sprintf("%s?action=quicksearch&search_name=%s&currency=eur&locale=en&platform=all",
		searchAPIURL, url.QueryEscape(query))

	s.log.Info().Str("query", query).Msg("searching AllKeyShop")
	body, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("search request failed")
		return results
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("unexpected search response shape")
		return results
	}
	if envelope.Results == "" {
		s.log.Warn().Str("query", query).Msg("no search results HTML")
		return results
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + envelope.Results + "</body></html>"))
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("could not parse search results fragment")
		return results
	}

	doc.Find("li.ls-results-row").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("ls-last-row") {
			return
		}
		result, ok := parseSearchRow(row)
		if !ok {
			return
		}
		results = append(results, result)
	})

	s.log.Info().Str("query", query).Int("count", len(results)).Msg("search done")
	return results
}

// parseSearchRow reads one result row. Rows without a usable product link
// are dropped; every other field tolerates being absent so one malformed
// row never sinks the rest.
func parseSearchRow(row *goquery.Selection) (models.SearchResult, bool) {
	href, _ := row.Find("a.ls-results-row-link").First().Attr("href")
	if href == "" || !strings.Contains(href, "/blog/buy-") {
		return models.SearchResult{}, false
	}

	title := strings.TrimSpace(row.Find("h2.ls-results-row-game-title").First().Text())
	info := strings.TrimSpace(row.Find("div.ls-results-row-game-infos").First().Text())

	// Info reads like "PC - 2022"; split on the first " - ".
	platform := row.AttrOr("data-platforms", "")
	year := ""
	if info != "" {
		parts := strings.SplitN(info, " - ", 2)
		if p := strings.TrimSpace(parts[0]); p != "" {
			platform = p
		}
		if len(parts) > 1 {
			year = strings.TrimSpace(parts[1])
		}
	}

	priceNode := row.Find("div.ls-results-row-price").First()
	stock := priceNode.AttrOr("data-stock", "")
	price, err := strconv.ParseFloat(priceNode.AttrOr("data-price", "0"), 64)
	if err != nil {
		price = 0
	}

	imageURL := ""
	style := row.Find("div.ls-results-row-image-ratio").First().AttrOr("style", "")
	if m := imageURLPattern.FindStringSubmatch(style); m != nil {
		imageURL = m[1]
	}

	return models.SearchResult{
		Title:    title,
		URL:      href,
		Platform: platform,
		Year:     year,
		Price:    price,
		ImageURL: imageURL,
		InStock:  stock == "in_stock",
	}, true
}
