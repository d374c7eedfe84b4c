// Package pricing merges freshly scraped prices into the persisted watch
// list and decides when an alert threshold has been crossed.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"aks-monitor/internal/models"
)

// Aggregator produces price snapshots for a game page, or for a bare name
// through the legacy search-then-pick path.
type Aggregator interface {
	GetPrice(ctx context.Context, pageURL, gameName string) (*models.GamePrice, error)
	GetPriceByName(ctx context.Context, gameName string) (*models.GamePrice, error)
}

// Store is the watch-list persistence the service depends on.
type Store interface {
	GetWatchedGames() ([]models.WatchedGame, error)
	GetWatchedGame(id int64) (*models.WatchedGame, error)
	GetWatchedGameByName(name string) (*models.WatchedGame, error)
	AddWatchedGame(*models.WatchedGame) error
	UpdateWatchedGame(*models.WatchedGame) error
	DeleteWatchedGame(id int64) error
}

// Service drives reconciliation between scrape results and the watch list.
type Service struct {
	store      Store
	aggregator Aggregator
	log        zerolog.Logger
}

// NewService creates the reconciliation service.
func NewService(store Store, aggregator Aggregator, log zerolog.Logger) *Service {
	return &Service{
		store:      store,
		aggregator: aggregator,
		log:        log.With().Str("component", "pricing").Logger(),
	}
}

// Watch adds a game to the watch list. The name must not be watched yet.
func (s *Service) Watch(name, pageURL, imageURL string, keyThreshold, accountThreshold float64) (*models.WatchedGame, error) {
	if name == "" {
		return nil, fmt.Errorf("empty game name")
	}
	existing, err := s.store.GetWatchedGameByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%q is already watched", name)
	}

	game := &models.WatchedGame{
		GameName:         name,
		PageURL:          pageURL,
		ImageURL:         imageURL,
		KeyThreshold:     keyThreshold,
		AccountThreshold: accountThreshold,
		DateAdded:        time.Now(),
	}
	if err := s.store.AddWatchedGame(game); err != nil {
		return nil, err
	}
	s.log.Info().Str("game", name).Int64("id", game.ID).Msg("watching game")
	return game, nil
}

// Unwatch removes a watch-list entry.
func (s *Service) Unwatch(id int64) error {
	return s.store.DeleteWatchedGame(id)
}

// UpdateThresholds replaces both alert thresholds of an entry. A zero
// threshold disables the alert for that category.
func (s *Service) UpdateThresholds(id int64, keyThreshold, accountThreshold float64) error {
	game, err := s.store.GetWatchedGame(id)
	if err != nil {
		return err
	}
	if game == nil {
		return fmt.Errorf("watched game %d not found", id)
	}
	game.KeyThreshold = keyThreshold
	game.AccountThreshold = accountThreshold
	return s.store.UpdateWatchedGame(game)
}

// List returns the full watch list.
func (s *Service) List() ([]models.WatchedGame, error) {
	return s.store.GetWatchedGames()
}

// Reconcile scrapes the current prices for one entry and merges them in.
// The stored page URL is used directly when present; entries created before
// page URLs were tracked fall back to the search-by-name path. A failed
// scrape leaves the stored fields untouched and returns the error, so a
// transient failure never zeroes out known-good history.
func (s *Service) Reconcile(ctx context.Context, game *models.WatchedGame) error {
	var (
		price *models.GamePrice
		err   error
	)
	if game.PageURL != "" {
		price, err = s.aggregator.GetPrice(ctx, game.PageURL, game.GameName)
	} else {
		price, err = s.aggregator.GetPriceByName(ctx, game.GameName)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("game", game.GameName).Msg("could not retrieve price data")
		return err
	}
	if price == nil {
		return fmt.Errorf("no price data for %q", game.GameName)
	}

	if game.PageURL == "" && price.PageURL != "" {
		game.PageURL = price.PageURL
	}
	if price.URL != "" {
		game.LastURL = price.URL
	}

	// Never overwrite a known-good field with an absent or zero value.
	if price.Available && price.Price > 0 {
		game.LastPrice = price.Price
		game.LastSeller = price.Seller
		if game.LastSeller == "" {
			game.LastSeller = "N/A"
		}
	}
	if price.KeyPrice > 0 {
		game.KeyPrice = price.KeyPrice
		game.KeySeller = price.KeySeller
	}
	if price.AccountPrice > 0 {
		game.AccountPrice = price.AccountPrice
		game.AccountSeller = price.AccountSeller
	}

	// The timestamp moves on every successful fetch, even when no numeric
	// field changed.
	game.LastUpdate = time.Now()

	if err := s.store.UpdateWatchedGame(game); err != nil {
		return err
	}

	s.log.Info().
		Str("game", game.GameName).
		Float64("keyPrice", game.KeyPrice).
		Str("keySeller", game.KeySeller).
		Float64("accountPrice", game.AccountPrice).
		Str("accountSeller", game.AccountSeller).
		Msg("updated watched game")
	return nil
}

// ReconcileByID reconciles a single entry looked up by id and returns
// it with the merged prices.
func (s *Service) ReconcileByID(ctx context.Context, id int64) (*models.WatchedGame, error) {
	game, err := s.store.GetWatchedGame(id)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("watched game %d not found", id)
	}
	if err := s.Reconcile(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// UpdateAll reconciles every watch-list entry sequentially; the shared
// rate limiter makes concurrent fan-out pointless and bursty. Individual
// failures are logged and skipped. Returns the number of merged entries.
func (s *Service) UpdateAll(ctx context.Context) (int, error) {
	games, err := s.store.GetWatchedGames()
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range games {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		if err := s.Reconcile(ctx, &games[i]); err != nil {
			continue
		}
		updated++
	}
	return updated, nil
}

// KeyAlert reports whether the key price crossed the key threshold.
func KeyAlert(g models.WatchedGame) bool {
	return g.KeyThreshold > 0 && g.KeyPrice > 0 && g.KeyPrice <= g.KeyThreshold
}

// AccountAlert reports whether the account price crossed the account
// threshold. It fires independently of KeyAlert.
func AccountAlert(g models.WatchedGame) bool {
	return g.AccountThreshold > 0 && g.AccountPrice > 0 && g.AccountPrice <= g.AccountThreshold
}

// HasAlert reports whether any alert applies. When neither a key nor an
// account price is known yet, the last overall price is compared against
// whichever thresholds are set.
func HasAlert(g models.WatchedGame) bool {
	if KeyAlert(g) || AccountAlert(g) {
		return true
	}
	if g.KeyPrice == 0 && g.AccountPrice == 0 && g.LastPrice > 0 {
		if g.KeyThreshold > 0 && g.LastPrice <= g.KeyThreshold {
			return true
		}
		if g.AccountThreshold > 0 && g.LastPrice <= g.AccountThreshold {
			return true
		}
	}
	return false
}

// GamesWithAlerts returns the watch-list entries whose alerts currently
// fire.
func (s *Service) GamesWithAlerts() ([]models.WatchedGame, error) {
	games, err := s.store.GetWatchedGames()
	if err != nil {
		return nil, err
	}
	var hits []models.WatchedGame
	for _, g := range games {
		if HasAlert(g) {
			hits = append(hits, g)
		}
	}
	return hits, nil
}
