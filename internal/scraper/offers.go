package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"aks-monitor/internal/models"
)

// ErrNotFound means a query or page yielded no usable offers.
var ErrNotFound = errors.New("no results found")

// The gamePageTrans JSON shows up in three shapes in the wild; the three
// patterns below are tried in order and the first match wins.
var (
	transSameLine  = regexp.MustCompile(`(?m)var\s+gamePageTrans\s*=\s*(\{.+?\});\s*$`)
	transMultiLine = regexp.MustCompile(`(?s)var\s+gamePageTrans\s*=\s*(\{.+?\});\s*//`)
)

// flexID accepts string and numeric JSON identifiers; the edition/region
// ids in price entries come in both forms.
type flexID string

func (v *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = flexID(n.String())
	return nil
}

// gamePageData is the embedded dataset on a game page. Price entries stay
// raw so one malformed entry never drops the rest.
type gamePageData struct {
	Prices   []json.RawMessage      `json:"prices"`
	Editions map[string]editionInfo `json:"editions"`
	Regions  map[string]regionInfo  `json:"regions"`
}

type editionInfo struct {
	Name string `json:"name"`
}

type regionInfo struct {
	RegionName string `json:"region_name"`
}

type priceEntry struct {
	ID            int      `json:"id"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice"`
	MerchantName  string   `json:"merchantName"`
	Merchant      int      `json:"merchant"`
	IsOfficial    bool     `json:"isOfficial"`
	Account       bool     `json:"account"`
	VoucherCode   string   `json:"voucher_code"`
	PricePaypal   *float64 `json:"pricePaypal"`
	PriceCard     *float64 `json:"priceCard"`
	Edition       flexID   `json:"edition"`
	Region        flexID   `json:"region"`
}

// GetPrice fetches a game page, extracts the embedded offer dataset and
// returns the normalized snapshot. A fresh cached snapshot for the same
// page URL is returned without a network call. A page that exists but
// carries no offers comes back Available=false with a nil error; fetch and
// parse failures return a nil snapshot and the error.
func (s *Scraper) GetPrice(ctx context.Context, pageURL, gameName string) (*models.GamePrice, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, fmt.Errorf("empty page URL for %q", gameName)
	}

	if cached := s.cache.get(pageURL); cached != nil {
		return cached, nil
	}

	s.log.Info().Str("url", pageURL).Msg("fetching game page")
	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	transJSON, ok := extractGamePageTrans(string(html))
	if !ok {
		return nil, &ParseError{URL: pageURL, Msg: "gamePageTrans not found"}
	}

	var data gamePageData
	if err := json.Unmarshal([]byte(transJSON), &data); err != nil {
		return nil, &ParseError{URL: pageURL, Msg: fmt.Sprintf("gamePageTrans: %v", err)}
	}

	if len(data.Prices) == 0 {
		// Page exists but has no offers; distinct from a failed fetch.
		s.log.Warn().Str("url", pageURL).Msg("no prices in gamePageTrans")
		return &models.GamePrice{
			GameName:    gameName,
			PageURL:     pageURL,
			Available:   false,
			RetrievedAt: time.Now(),
		}, nil
	}

	var offers []models.Offer
	for _, raw := range data.Prices {
		offer, err := buildOffer(raw, data.Editions, data.Regions)
		if err != nil {
			s.log.Debug().Err(err).Msg("skipping malformed offer")
			continue
		}
		offers = append(offers, offer)
	}

	price := assembleGamePrice(gameName, pageURL, offers)
	s.cache.put(pageURL, price)

	s.log.Info().
		Str("game", gameName).
		Float64("keyPrice", price.KeyPrice).
		Float64("accountPrice", price.AccountPrice).
		Int("offers", len(offers)).
		Msg("scraped prices")
	return price, nil
}

// GetPriceByName is the legacy path for watch entries created before page
// URLs were tracked: search by name, auto-pick a result, then aggregate.
func (s *Scraper) GetPriceByName(ctx context.Context, gameName string) (*models.GamePrice, error) {
	if strings.TrimSpace(gameName) == "" {
		return nil, fmt.Errorf("empty game name")
	}

	if cached := s.cache.get(gameName); cached != nil {
		return cached, nil
	}

	results := s.Search(ctx, gameName)
	if len(results) == 0 {
		return nil, fmt.Errorf("search %q: %w", gameName, ErrNotFound)
	}

	match := PickPreferPC(results)
	s.log.Info().Str("game", gameName).Str("picked", match.Title).Msg("auto-selected search result")

	price, err := s.GetPrice(ctx, match.URL, gameName)
	if err != nil {
		return nil, err
	}
	s.cache.put(gameName, price)
	return price, nil
}

// PickPreferPC is the auto-pick policy for name-only lookups: the first PC
// result, else the first result. It matches on the platform label, which is
// fragile; it lives here as a named strategy so the reconciliation flow can
// swap it without changes.
func PickPreferPC(results []models.SearchResult) models.SearchResult {
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Platform), "pc") {
			return r
		}
	}
	return results[0]
}

// extractGamePageTrans pulls the JSON object assigned to gamePageTrans out
// of the page HTML, trying the same-line shape, then the comment-terminated
// multi-line shape, then the inline script tag by id.
func extractGamePageTrans(html string) (string, bool) {
	if m := transSameLine.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	if m := transMultiLine.FindStringSubmatch(html); m != nil {
		return m[1], true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	found := ""
	doc.Find("script#aks-offers-js-extra").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if m := transSameLine.FindStringSubmatch(script.Text()); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	return found, found != ""
}

// buildOffer normalizes one raw price entry into an Offer, resolving the
// edition and region lookups and deriving the buy URL.
func buildOffer(raw json.RawMessage, editions map[string]editionInfo, regions map[string]regionInfo) (models.Offer, error) {
	var entry priceEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.Offer{}, err
	}

	edition := "Standard"
	if id := string(entry.Edition); id != "" {
		if e, ok := editions[id]; ok && e.Name != "" {
			edition = e.Name
		}
	}

	region := string(entry.Region)
	if r, ok := regions[region]; ok && r.RegionName != "" {
		region = r.RegionName
	}

	return models.Offer{
		OfferID:       entry.ID,
		MerchantID:    entry.Merchant,
		MerchantName:  entry.MerchantName,
		Price:         entry.Price,
		OriginalPrice: entry.OriginalPrice,
		IsOfficial:    entry.IsOfficial,
		IsAccount:     entry.Account,
		Edition:       edition,
		Region:        region,
		VoucherCode:   entry.VoucherCode,
		PricePaypal:   entry.PricePaypal,
		PriceCard:     entry.PriceCard,
		BuyURL:        fmt.Sprintf(offerRedirectURL, entry.ID, entry.Merchant),
	}, nil
}

// bestOffer applies the selection tie-break to one partition: ascending by
// LowestFeePrice, preferring the cheapest Standard-edition offer, falling
// back to the cheapest overall. Nil when the partition is empty.
func bestOffer(offers []models.Offer) *models.Offer {
	if len(offers) == 0 {
		return nil
	}
	sorted := make([]models.Offer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LowestFeePrice() < sorted[j].LowestFeePrice()
	})
	for i := range sorted {
		if sorted[i].Edition == "Standard" {
			return &sorted[i]
		}
	}
	return &sorted[0]
}

// assembleGamePrice partitions the offers into keys and accounts, picks the
// best of each and builds the snapshot. Keys are preferred for the overall
// best regardless of price.
func assembleGamePrice(gameName, pageURL string, offers []models.Offer) *models.GamePrice {
	var keyOffers, accountOffers []models.Offer
	for _, o := range offers {
		if o.Price <= 0 {
			continue
		}
		if o.IsAccount {
			accountOffers = append(accountOffers, o)
		} else {
			keyOffers = append(keyOffers, o)
		}
	}

	bestKey := bestOffer(keyOffers)
	bestAccount := bestOffer(accountOffers)

	bestOverall := bestKey
	if bestOverall == nil {
		bestOverall = bestAccount
	}

	price := &models.GamePrice{
		GameName:    gameName,
		PageURL:     pageURL,
		Offers:      offers,
		RetrievedAt: time.Now(),
		Available:   bestOverall != nil,
	}

	if bestOverall != nil {
		price.Price = bestOverall.LowestFeePrice()
		price.Seller = bestOverall.MerchantName
		price.URL = bestOverall.BuyURL
	}
	if bestKey != nil {
		price.KeyPrice = bestKey.LowestFeePrice()
		price.KeySeller = bestKey.MerchantName
		price.KeyURL = bestKey.BuyURL
		price.KeyIsOfficial = bestKey.IsOfficial
	}
	if bestAccount != nil {
		price.AccountPrice = bestAccount.LowestFeePrice()
		price.AccountSeller = bestAccount.MerchantName
		price.AccountURL = bestAccount.BuyURL
	}
	return price
}
