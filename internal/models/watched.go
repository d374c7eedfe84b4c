package models

import "time"

// WatchedGame is a persisted watch-list entry. GameName is unique across
// the set; a zero threshold means no alert for that category.
type WatchedGame struct {
	ID       int64
	GameName string
	PageURL  string

	LastPrice  float64
	LastSeller string
	LastURL    string

	KeyPrice      float64
	KeySeller     string
	AccountPrice  float64
	AccountSeller string

	KeyThreshold     float64
	AccountThreshold float64

	ImageURL   string
	LastUpdate time.Time
	DateAdded  time.Time
}

// FreeGame is a discovered free-game promotion. (Platform, GameName) is
// unique; re-discovery is a no-op.
type FreeGame struct {
	ID       int64
	Platform string
	GameName string
	URL      string
	FoundAt  time.Time
}

// ExtensionSettings is the persisted configuration blob consumed read-only
// by the polling loop, one snapshot per cycle.
type ExtensionSettings struct {
	EnabledPlatforms              []string `json:"enabledPlatforms"`
	PriceUpdateIntervalMinutes    int      `json:"priceUpdateIntervalMinutes"`
	FreeGamesCheckIntervalMinutes int      `json:"freeGamesCheckIntervalMinutes"`
	NotificationsEnabled          bool     `json:"notificationsEnabled"`
	PriceAlertsEnabled            bool     `json:"priceAlertsEnabled"`
}

// DefaultSettings mirrors the defaults applied when no settings blob has
// been stored yet.
func DefaultSettings() ExtensionSettings {
	return ExtensionSettings{
		PriceUpdateIntervalMinutes:    60,
		FreeGamesCheckIntervalMinutes: 120,
		NotificationsEnabled:          true,
		PriceAlertsEnabled:            true,
	}
}

// IsPlatformEnabled reports whether the given platform is in the enabled
// list. An empty list means every platform is enabled.
func (s ExtensionSettings) IsPlatformEnabled(platform string) bool {
	if len(s.EnabledPlatforms) == 0 {
		return true
	}
	for _, p := range s.EnabledPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}
