// Package freegames filters scraped free-game promotions down to the ones
// not seen before. Persistence is the source of truth for de-duplication;
// the service holds no state across calls.
package freegames

import (
	"context"

	"github.com/rs/zerolog"

	"aks-monitor/internal/models"
)

// Source scrapes the current list of free-game promotions.
type Source interface {
	FetchDeals(ctx context.Context) ([]models.FreeGame, error)
}

// Store is the free-game history persistence.
type Store interface {
	FreeGameExists(platform, name string) (bool, error)
	AddFreeGame(*models.FreeGame) error
	GetFreeGames() ([]models.FreeGame, error)
}

// FilterNew returns the deals the existence predicate does not know yet,
// keyed by (platform, name). Predicate failures drop the single deal, not
// the batch.
func FilterNew(deals []models.FreeGame, exists func(platform, name string) (bool, error)) []models.FreeGame {
	var fresh []models.FreeGame
	for _, deal := range deals {
		known, err := exists(deal.Platform, deal.GameName)
		if err != nil || known {
			continue
		}
		fresh = append(fresh, deal)
	}
	return fresh
}

// Service wires the deal source and the history store together.
type Service struct {
	source Source
	store  Store
	log    zerolog.Logger
}

// NewService creates the free-games service.
func NewService(source Source, store Store, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		store:  store,
		log:    log.With().Str("component", "freegames").Logger(),
	}
}

// CheckForNewDeals scrapes the widget, filters out already-known
// promotions, persists the rest and returns them.
func (s *Service) CheckForNewDeals(ctx context.Context) ([]models.FreeGame, error) {
	scraped, err := s.source.FetchDeals(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not fetch deals")
		return nil, err
	}

	fresh := FilterNew(scraped, s.store.FreeGameExists)
	for i := range fresh {
		if err := s.store.AddFreeGame(&fresh[i]); err != nil {
			s.log.Warn().Err(err).Str("game", fresh[i].GameName).Msg("could not record free game")
		}
	}

	if len(fresh) > 0 {
		s.log.Info().Int("count", len(fresh)).Msg("new free games found")
	}
	return fresh, nil
}

// History returns the recorded promotions, newest first.
func (s *Service) History() ([]models.FreeGame, error) {
	return s.store.GetFreeGames()
}
