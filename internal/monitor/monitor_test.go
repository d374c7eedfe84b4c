package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aks-monitor/internal/freegames"
	"aks-monitor/internal/models"
	"aks-monitor/internal/pricing"
)

// memStore backs both services in-memory for the polling tests.
type memStore struct {
	games map[int64]*models.WatchedGame
	next  int64
	seen  map[string]models.FreeGame
}

func newMemStore() *memStore {
	return &memStore{games: map[int64]*models.WatchedGame{}, next: 1, seen: map[string]models.FreeGame{}}
}

func (m *memStore) GetWatchedGames() ([]models.WatchedGame, error) {
	var out []models.WatchedGame
	for id := int64(1); id < m.next; id++ {
		if g, ok := m.games[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memStore) GetWatchedGame(id int64) (*models.WatchedGame, error) {
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (m *memStore) GetWatchedGameByName(name string) (*models.WatchedGame, error) {
	for _, g := range m.games {
		if g.GameName == name {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) AddWatchedGame(g *models.WatchedGame) error {
	g.ID = m.next
	m.next++
	copied := *g
	m.games[g.ID] = &copied
	return nil
}

func (m *memStore) UpdateWatchedGame(g *models.WatchedGame) error {
	copied := *g
	m.games[g.ID] = &copied
	return nil
}

func (m *memStore) DeleteWatchedGame(id int64) error {
	delete(m.games, id)
	return nil
}

func (m *memStore) FreeGameExists(platform, name string) (bool, error) {
	_, ok := m.seen[platform+"|"+name]
	return ok, nil
}

func (m *memStore) AddFreeGame(g *models.FreeGame) error {
	m.seen[g.Platform+"|"+g.GameName] = *g
	return nil
}

func (m *memStore) GetFreeGames() ([]models.FreeGame, error) {
	var out []models.FreeGame
	for _, g := range m.seen {
		out = append(out, g)
	}
	return out, nil
}

type stubAggregator struct {
	price *models.GamePrice
}

func (s *stubAggregator) GetPrice(ctx context.Context, pageURL, gameName string) (*models.GamePrice, error) {
	return s.price, nil
}

func (s *stubAggregator) GetPriceByName(ctx context.Context, gameName string) (*models.GamePrice, error) {
	return s.price, nil
}

type stubSource struct {
	deals []models.FreeGame
}

func (s *stubSource) FetchDeals(ctx context.Context) ([]models.FreeGame, error) {
	return s.deals, nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(message string) error {
	r.messages = append(r.messages, message)
	return nil
}

type stubSettings struct {
	settings models.ExtensionSettings
}

func (s *stubSettings) LoadSettings() (models.ExtensionSettings, error) {
	return s.settings, nil
}

type fixture struct {
	store    *memStore
	agg      *stubAggregator
	source   *stubSource
	notifier *recordingNotifier
	settings *stubSettings
	monitor  *Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		agg:      &stubAggregator{},
		source:   &stubSource{},
		notifier: &recordingNotifier{},
		settings: &stubSettings{settings: models.DefaultSettings()},
	}
	pricingSvc := pricing.NewService(f.store, f.agg, zerolog.Nop())
	freeGamesSvc := freegames.NewService(f.source, f.store, zerolog.Nop())
	f.monitor = New(pricingSvc, freeGamesSvc, f.settings, f.notifier, 0, 0, zerolog.Nop())
	return f
}

func TestCheckPricesNotifiesOnceWhileBelowThreshold(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.AddWatchedGame(&models.WatchedGame{
		GameName:     "Test Game",
		PageURL:      "https://example.com/page",
		KeyThreshold: 12,
	}))
	f.agg.price = &models.GamePrice{
		GameName:  "Test Game",
		PageURL:   "https://example.com/page",
		Price:     9.5,
		Seller:    "GameStore",
		KeyPrice:  9.5,
		KeySeller: "GameStore",
		Available: true,
	}

	ctx := context.Background()
	f.monitor.CheckPrices(ctx)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "Test Game")
	assert.Contains(t, f.notifier.messages[0], "9.50€")

	// The next cycle sees the same crossed threshold and stays quiet.
	f.monitor.CheckPrices(ctx)
	assert.Len(t, f.notifier.messages, 1)

	// The price recovers, then drops again: a fresh alert fires.
	f.agg.price.KeyPrice = 20
	f.monitor.CheckPrices(ctx)
	assert.Len(t, f.notifier.messages, 1)

	f.agg.price.KeyPrice = 9.5
	f.monitor.CheckPrices(ctx)
	assert.Len(t, f.notifier.messages, 2)
}

func TestCheckPricesRespectsAlertToggle(t *testing.T) {
	f := newFixture(t)
	f.settings.settings.PriceAlertsEnabled = false

	require.NoError(t, f.store.AddWatchedGame(&models.WatchedGame{
		GameName:     "Test Game",
		PageURL:      "https://example.com/page",
		KeyThreshold: 12,
	}))
	f.agg.price = &models.GamePrice{
		GameName: "Test Game", PageURL: "https://example.com/page",
		Price: 9.5, KeyPrice: 9.5, Available: true,
	}

	f.monitor.CheckPrices(context.Background())
	assert.Empty(t, f.notifier.messages)
}

func TestCheckFreeGamesFiltersPlatforms(t *testing.T) {
	f := newFixture(t)
	f.settings.settings.EnabledPlatforms = []string{"Steam"}
	f.source.deals = []models.FreeGame{
		{GameName: "On Steam", Platform: "Steam - Free to keep", URL: "https://example.com/a"},
		{GameName: "On Epic", Platform: "Epic Games - Free to keep", URL: "https://example.com/b"},
	}

	f.monitor.CheckFreeGames(context.Background())

	require.Len(t, f.notifier.messages, 1, "disabled platforms are recorded but not announced")
	assert.Contains(t, f.notifier.messages[0], "On Steam")

	// Both deals are in the history regardless of the filter.
	all, err := f.store.GetFreeGames()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCheckFreeGamesNotifiesOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.source.deals = []models.FreeGame{
		{GameName: "Giveaway", Platform: "Steam - Free to keep", URL: "https://example.com/a"},
	}

	ctx := context.Background()
	f.monitor.CheckFreeGames(ctx)
	f.monitor.CheckFreeGames(ctx)

	assert.Len(t, f.notifier.messages, 1, "an already-recorded promotion stays silent")
}

func TestRefreshIntervalsPicksUpSettingsChanges(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, time.Minute, f.monitor.priceInterval, "sub-minute construction intervals are clamped")
	assert.Equal(t, time.Minute, f.monitor.freeGamesInterval)

	priceTicker := time.NewTicker(f.monitor.priceInterval)
	defer priceTicker.Stop()
	freeGamesTicker := time.NewTicker(f.monitor.freeGamesInterval)
	defer freeGamesTicker.Stop()

	// The stored settings win over the construction intervals.
	f.monitor.refreshIntervals(priceTicker, freeGamesTicker)
	assert.Equal(t, 60*time.Minute, f.monitor.priceInterval)
	assert.Equal(t, 120*time.Minute, f.monitor.freeGamesInterval)

	// An interval edit in the stored settings applies without a restart.
	f.settings.settings.PriceUpdateIntervalMinutes = 15
	f.monitor.refreshIntervals(priceTicker, freeGamesTicker)
	assert.Equal(t, 15*time.Minute, f.monitor.priceInterval)
	assert.Equal(t, 120*time.Minute, f.monitor.freeGamesInterval, "untouched interval stays put")

	// Sub-minute values are clamped.
	f.settings.settings.FreeGamesCheckIntervalMinutes = 0
	f.monitor.refreshIntervals(priceTicker, freeGamesTicker)
	assert.Equal(t, time.Minute, f.monitor.freeGamesInterval)
}

func TestDealPlatform(t *testing.T) {
	assert.Equal(t, "Steam", dealPlatform(models.FreeGame{Platform: "Steam - Free to keep"}))
	assert.Equal(t, "PC", dealPlatform(models.FreeGame{Platform: "PC"}))
}
