// Package monitor is the polling shell around the price and free-games
// engines: two tickers, strictly sequential work, notifications through a
// pluggable sink. The core stays plain functions; this is the only place
// that schedules them.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aks-monitor/internal/freegames"
	"aks-monitor/internal/models"
	"aks-monitor/internal/pricing"
)

// Notifier delivers a user-facing message. Delivery failures are logged
// and dropped; notifications are best-effort.
type Notifier interface {
	Notify(message string) error
}

// SettingsSource provides the settings snapshot read at the start of each
// cycle.
type SettingsSource interface {
	LoadSettings() (models.ExtensionSettings, error)
}

// Monitor periodically reconciles the watch list and checks for free-game
// promotions.
type Monitor struct {
	pricing   *pricing.Service
	freeGames *freegames.Service
	settings  SettingsSource
	notifier  Notifier
	log       zerolog.Logger

	priceInterval     time.Duration
	freeGamesInterval time.Duration

	// Alert state per watched game id, so a crossed threshold notifies
	// once instead of every cycle.
	alerted map[int64]bool
}

// New creates a Monitor. Intervals shorter than a minute are raised to a
// minute.
func New(pricingSvc *pricing.Service, freeGamesSvc *freegames.Service, settings SettingsSource, notifier Notifier, priceInterval, freeGamesInterval time.Duration, log zerolog.Logger) *Monitor {
	priceInterval = clampInterval(priceInterval)
	freeGamesInterval = clampInterval(freeGamesInterval)
	return &Monitor{
		pricing:           pricingSvc,
		freeGames:         freeGamesSvc,
		settings:          settings,
		notifier:          notifier,
		log:               log.With().Str("component", "monitor").Logger(),
		priceInterval:     priceInterval,
		freeGamesInterval: freeGamesInterval,
		alerted:           make(map[int64]bool),
	}
}

// Start runs both polling loops until the context is cancelled. Each cycle
// runs to completion before the next fires; the two loops never overlap
// because everything executes on this goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.log.Info().
		Dur("priceInterval", m.priceInterval).
		Dur("freeGamesInterval", m.freeGamesInterval).
		Msg("monitor started")

	m.CheckPrices(ctx)
	m.CheckFreeGames(ctx)

	priceTicker := time.NewTicker(m.priceInterval)
	defer priceTicker.Stop()
	freeGamesTicker := time.NewTicker(m.freeGamesInterval)
	defer freeGamesTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor stopped")
			return
		case <-priceTicker.C:
			m.CheckPrices(ctx)
			m.refreshIntervals(priceTicker, freeGamesTicker)
		case <-freeGamesTicker.C:
			m.CheckFreeGames(ctx)
			m.refreshIntervals(priceTicker, freeGamesTicker)
		}
	}
}

// refreshIntervals re-reads the stored intervals and resets the tickers
// when they changed, so an interval edit takes effect on the next cycle
// without a restart.
func (m *Monitor) refreshIntervals(priceTicker, freeGamesTicker *time.Ticker) {
	settings := m.loadSettings()

	if d := clampInterval(time.Duration(settings.PriceUpdateIntervalMinutes) * time.Minute); d != m.priceInterval {
		m.log.Info().Dur("priceInterval", d).Msg("price interval changed")
		m.priceInterval = d
		priceTicker.Reset(d)
	}
	if d := clampInterval(time.Duration(settings.FreeGamesCheckIntervalMinutes) * time.Minute); d != m.freeGamesInterval {
		m.log.Info().Dur("freeGamesInterval", d).Msg("free games interval changed")
		m.freeGamesInterval = d
		freeGamesTicker.Reset(d)
	}
}

func clampInterval(d time.Duration) time.Duration {
	if d < time.Minute {
		return time.Minute
	}
	return d
}

// CheckPrices reconciles the whole watch list and notifies for every
// newly crossed threshold.
func (m *Monitor) CheckPrices(ctx context.Context) {
	settings := m.loadSettings()

	updated, err := m.pricing.UpdateAll(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("price update pass failed")
		return
	}
	m.log.Info().Int("updated", updated).Msg("price update pass done")

	if !settings.PriceAlertsEnabled {
		return
	}

	games, err := m.pricing.List()
	if err != nil {
		m.log.Warn().Err(err).Msg("could not read watch list")
		return
	}
	for _, game := range games {
		if !pricing.HasAlert(game) {
			delete(m.alerted, game.ID)
			continue
		}
		if m.alerted[game.ID] {
			continue
		}
		m.alerted[game.ID] = true
		if settings.NotificationsEnabled {
			m.notify(formatPriceAlert(game))
		}
	}
}

// CheckFreeGames asks the deduplicator for promotions not seen before and
// notifies for the ones on enabled platforms.
func (m *Monitor) CheckFreeGames(ctx context.Context) {
	settings := m.loadSettings()

	fresh, err := m.freeGames.CheckForNewDeals(ctx)
	if err != nil {
		return
	}

	for _, deal := range fresh {
		if !settings.IsPlatformEnabled(dealPlatform(deal)) {
			continue
		}
		if settings.NotificationsEnabled {
			m.notify(formatFreeGame(deal))
		}
	}
}

func (m *Monitor) loadSettings() models.ExtensionSettings {
	settings, err := m.settings.LoadSettings()
	if err != nil {
		m.log.Warn().Err(err).Msg("could not load settings, using defaults")
		return models.DefaultSettings()
	}
	return settings
}

func (m *Monitor) notify(message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(message); err != nil {
		m.log.Warn().Err(err).Msg("could not deliver notification")
	}
}

// dealPlatform strips the promotion type off the stored label, which reads
// like "Steam - Free to keep".
func dealPlatform(deal models.FreeGame) string {
	if i := strings.Index(deal.Platform, " - "); i >= 0 {
		return deal.Platform[:i]
	}
	return deal.Platform
}

func formatPriceAlert(game models.WatchedGame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Price alert: %s\n", game.GameName)
	if pricing.KeyAlert(game) {
		fmt.Fprintf(&b, "Key: %.2f€ (%s), threshold %.2f€\n", game.KeyPrice, game.KeySeller, game.KeyThreshold)
	}
	if pricing.AccountAlert(game) {
		fmt.Fprintf(&b, "Account: %.2f€ (%s), threshold %.2f€\n", game.AccountPrice, game.AccountSeller, game.AccountThreshold)
	}
	if game.LastURL != "" {
		fmt.Fprintf(&b, "\n%s", game.LastURL)
	}
	return b.String()
}

func formatFreeGame(deal models.FreeGame) string {
	return fmt.Sprintf("🎁 Free game: %s\n%s\n\n%s", deal.GameName, deal.Platform, deal.URL)
}
