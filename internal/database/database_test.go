package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aks-monitor/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWatchedGameCRUD(t *testing.T) {
	db := newTestDB(t)

	game := &models.WatchedGame{
		GameName:     "Test Game",
		PageURL:      "https://www.allkeyshop.com/blog/buy-test-game/",
		KeyThreshold: 12,
	}
	require.NoError(t, db.AddWatchedGame(game))
	assert.Equal(t, int64(1), game.ID)

	loaded, err := db.GetWatchedGame(game.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Test Game", loaded.GameName)
	assert.Equal(t, 12.0, loaded.KeyThreshold)
	assert.True(t, loaded.LastUpdate.IsZero(), "never-updated entries carry a zero timestamp")
	assert.False(t, loaded.DateAdded.IsZero())

	loaded.KeyPrice = 9.5
	loaded.KeySeller = "GameStore"
	loaded.AccountPrice = 8
	loaded.AccountSeller = "AccShop"
	loaded.LastUpdate = time.Now()
	require.NoError(t, db.UpdateWatchedGame(loaded))

	reloaded, err := db.GetWatchedGameByName("Test Game")
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, 9.5, reloaded.KeyPrice)
	assert.Equal(t, "AccShop", reloaded.AccountSeller)
	assert.False(t, reloaded.LastUpdate.IsZero())

	require.NoError(t, db.DeleteWatchedGame(game.ID))
	gone, err := db.GetWatchedGame(game.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestWatchedGameNameIsUnique(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.AddWatchedGame(&models.WatchedGame{GameName: "Test Game"}))
	err := db.AddWatchedGame(&models.WatchedGame{GameName: "Test Game"})
	assert.Error(t, err, "the unique constraint must reject a duplicate name")
}

func TestGetWatchedGameAbsent(t *testing.T) {
	db := newTestDB(t)

	game, err := db.GetWatchedGame(42)
	require.NoError(t, err)
	assert.Nil(t, game)

	game, err = db.GetWatchedGameByName("nobody")
	require.NoError(t, err)
	assert.Nil(t, game)
}

func TestGetWatchedGamesOrder(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"Game A", "Game B"} {
		require.NoError(t, db.AddWatchedGame(&models.WatchedGame{GameName: name}))
	}
	games, err := db.GetWatchedGames()
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestFreeGameHistory(t *testing.T) {
	db := newTestDB(t)

	game := &models.FreeGame{
		Platform: "Steam - Free to keep",
		GameName: "Free Game One",
		URL:      "https://example.com/free-game-one",
		FoundAt:  time.Now(),
	}

	known, err := db.FreeGameExists(game.Platform, game.GameName)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, db.AddFreeGame(game))

	known, err = db.FreeGameExists(game.Platform, game.GameName)
	require.NoError(t, err)
	assert.True(t, known)

	// Re-inserting the same (platform, name) pair is a silent no-op.
	require.NoError(t, db.AddFreeGame(game))
	games, err := db.GetFreeGames()
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Free Game One", games[0].GameName)

	// Same name on another platform is a distinct promotion.
	other := &models.FreeGame{Platform: "Epic Games - Free to keep", GameName: "Free Game One", FoundAt: time.Now()}
	require.NoError(t, db.AddFreeGame(other))
	games, err = db.GetFreeGames()
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)

	has, err := db.HasSettings()
	require.NoError(t, err)
	assert.False(t, has)

	// Without a stored blob the defaults apply.
	settings, err := db.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)

	settings.PriceUpdateIntervalMinutes = 15
	settings.EnabledPlatforms = []string{"Steam"}
	settings.PriceAlertsEnabled = false
	require.NoError(t, db.SaveSettings(settings))

	has, err = db.HasSettings()
	require.NoError(t, err)
	assert.True(t, has)

	loaded, err := db.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	// Saving again replaces the previous blob.
	settings.PriceUpdateIntervalMinutes = 30
	require.NoError(t, db.SaveSettings(settings))
	loaded, err = db.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.PriceUpdateIntervalMinutes)
}
