package scraper

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"aks-monitor/internal/models"
)

// FetchDeals scrapes the AllKeyShop deals widget and returns every free
// game promotion currently listed. Slides missing a title or URL are
// skipped; a transport failure is returned to the caller.
func (s *Scraper) FetchDeals(ctx context.Context) ([]models.FreeGame, error) {
	s.log.Info().Msg("fetching free games widget")
	html, err := s.fetcher.Fetch(ctx, dealsWidgetURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, &ParseError{URL: dealsWidgetURL, Msg: err.Error()}
	}

	var deals []models.FreeGame
	doc.Find("div.splide__slide").Each(func(_ int, slide *goquery.Selection) {
		console := slide.AttrOr("data-console", "")
		drm := slide.AttrOr("data-drm", "")

		gameURL := slide.Find("a.splide__slide__container").First().AttrOr("href", "")
		title := strings.TrimSpace(slide.Find("img.game-cover").First().AttrOr("alt", ""))

		freeType := strings.TrimSpace(slide.Find("span.free-game-type").First().Text())
		if freeType == "" {
			freeType = "Free"
		}

		if title == "" || gameURL == "" {
			return
		}

		deals = append(deals, models.FreeGame{
			GameName: title,
			Platform: platformLabel(drm, console) + " - " + freeType,
			URL:      gameURL,
			FoundAt:  time.Now(),
		})
	})

	if len(deals) == 0 {
		s.log.Warn().Msg("no game slides found in deals widget")
	} else {
		s.log.Info().Int("count", len(deals)).Msg("found free games")
	}
	return deals, nil
}

// platformLabel prefers the DRM name over the console name, defaulting to
// PC when neither is set.
func platformLabel(drm, console string) string {
	switch {
	case drm != "" && drm != "none":
		return capitalize(drm)
	case console != "":
		return capitalize(console)
	default:
		return "PC"
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
