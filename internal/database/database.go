// Package database is the persistence collaborator: a sqlite-backed store
// for the watch list, the free-game history and the settings blob. Calls
// are synchronous and atomic per statement; the core never issues
// multi-step transactions.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"aks-monitor/internal/models"
)

const settingsKey = "extension_settings"

// DB wraps the sqlite connection.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// init creates the tables when missing.
func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS watched_games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_name TEXT NOT NULL UNIQUE,
		page_url TEXT,
		last_price REAL,
		last_seller TEXT,
		last_url TEXT,
		key_price REAL,
		key_seller TEXT,
		account_price REAL,
		account_seller TEXT,
		key_threshold REAL,
		account_threshold REAL,
		image_url TEXT,
		last_update DATETIME,
		date_added DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS free_games_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		platform TEXT NOT NULL,
		game_name TEXT NOT NULL,
		url TEXT,
		found_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(platform, game_name)
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const watchedColumns = `id, game_name, page_url, last_price, last_seller, last_url,
	key_price, key_seller, account_price, account_seller,
	key_threshold, account_threshold, image_url, last_update, date_added`

// AddWatchedGame inserts a new watch-list entry and assigns its id. The
// unique constraint on game_name rejects duplicates.
func (db *DB) AddWatchedGame(g *models.WatchedGame) error {
	res, err := db.conn.Exec(
		`INSERT INTO watched_games (game_name, page_url, last_price, last_seller, last_url,
			key_price, key_seller, account_price, account_seller,
			key_threshold, account_threshold, image_url, last_update, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		g.GameName, g.PageURL, g.LastPrice, g.LastSeller, g.LastURL,
		g.KeyPrice, g.KeySeller, g.AccountPrice, g.AccountSeller,
		g.KeyThreshold, g.AccountThreshold, g.ImageURL, nullTime(g.LastUpdate),
	)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

// GetWatchedGames returns the full watch list, newest first.
func (db *DB) GetWatchedGames() ([]models.WatchedGame, error) {
	rows, err := db.conn.Query(`SELECT ` + watchedColumns + ` FROM watched_games ORDER BY date_added DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.WatchedGame
	for rows.Next() {
		g, err := scanWatchedGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// GetWatchedGame returns the entry with the given id, or nil when absent.
func (db *DB) GetWatchedGame(id int64) (*models.WatchedGame, error) {
	row := db.conn.QueryRow(`SELECT `+watchedColumns+` FROM watched_games WHERE id = ?`, id)
	return watchedGameOrNil(row)
}

// GetWatchedGameByName returns the entry with the given name, or nil when
// absent.
func (db *DB) GetWatchedGameByName(name string) (*models.WatchedGame, error) {
	row := db.conn.QueryRow(`SELECT `+watchedColumns+` FROM watched_games WHERE game_name = ?`, name)
	return watchedGameOrNil(row)
}

// UpdateWatchedGame writes every mutable field of the entry back by id.
func (db *DB) UpdateWatchedGame(g *models.WatchedGame) error {
	_, err := db.conn.Exec(
		`UPDATE watched_games SET game_name = ?, page_url = ?, last_price = ?, last_seller = ?,
			last_url = ?, key_price = ?, key_seller = ?, account_price = ?, account_seller = ?,
			key_threshold = ?, account_threshold = ?, image_url = ?, last_update = ?
		WHERE id = ?`,
		g.GameName, g.PageURL, g.LastPrice, g.LastSeller,
		g.LastURL, g.KeyPrice, g.KeySeller, g.AccountPrice, g.AccountSeller,
		g.KeyThreshold, g.AccountThreshold, g.ImageURL, nullTime(g.LastUpdate),
		g.ID,
	)
	return err
}

// DeleteWatchedGame removes the entry with the given id.
func (db *DB) DeleteWatchedGame(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM watched_games WHERE id = ?`, id)
	return err
}

// FreeGameExists reports whether a promotion with this (platform, name)
// pair was already recorded.
func (db *DB) FreeGameExists(platform, name string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(1) FROM free_games_history WHERE platform = ? AND game_name = ?`,
		platform, name,
	).Scan(&count)
	return count > 0, err
}

// AddFreeGame records a promotion; inserting an already-known
// (platform, name) pair is a no-op.
func (db *DB) AddFreeGame(g *models.FreeGame) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO free_games_history (platform, game_name, url, found_at) VALUES (?, ?, ?, ?)`,
		g.Platform, g.GameName, g.URL, g.FoundAt,
	)
	return err
}

// GetFreeGames returns the recorded promotions, newest first.
func (db *DB) GetFreeGames() ([]models.FreeGame, error) {
	rows, err := db.conn.Query(
		`SELECT id, platform, game_name, url, found_at FROM free_games_history ORDER BY found_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.FreeGame
	for rows.Next() {
		var g models.FreeGame
		var url sql.NullString
		var foundAt sql.NullTime
		if err := rows.Scan(&g.ID, &g.Platform, &g.GameName, &url, &foundAt); err != nil {
			return nil, err
		}
		g.URL = url.String
		if foundAt.Valid {
			g.FoundAt = foundAt.Time
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// LoadSettings returns the persisted settings blob, or the defaults when
// none was stored yet.
func (db *DB) LoadSettings() (models.ExtensionSettings, error) {
	settings := models.DefaultSettings()

	var raw string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return settings, err
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return models.DefaultSettings(), err
	}
	return settings, nil
}

// HasSettings reports whether a settings blob has been stored.
func (db *DB) HasSettings() (bool, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(1) FROM settings WHERE key = ?`, settingsKey).Scan(&count)
	return count > 0, err
}

// SaveSettings persists the settings blob, replacing any previous one.
func (db *DB) SaveSettings(settings models.ExtensionSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingsKey, string(raw),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchedGame(row rowScanner) (models.WatchedGame, error) {
	var g models.WatchedGame
	var pageURL, lastSeller, lastURL, keySeller, accountSeller, imageURL sql.NullString
	var lastPrice, keyPrice, accountPrice, keyThreshold, accountThreshold sql.NullFloat64
	var lastUpdate, dateAdded sql.NullTime

	err := row.Scan(&g.ID, &g.GameName, &pageURL, &lastPrice, &lastSeller, &lastURL,
		&keyPrice, &keySeller, &accountPrice, &accountSeller,
		&keyThreshold, &accountThreshold, &imageURL, &lastUpdate, &dateAdded)
	if err != nil {
		return g, err
	}

	g.PageURL = pageURL.String
	g.LastPrice = lastPrice.Float64
	g.LastSeller = lastSeller.String
	g.LastURL = lastURL.String
	g.KeyPrice = keyPrice.Float64
	g.KeySeller = keySeller.String
	g.AccountPrice = accountPrice.Float64
	g.AccountSeller = accountSeller.String
	g.KeyThreshold = keyThreshold.Float64
	g.AccountThreshold = accountThreshold.Float64
	g.ImageURL = imageURL.String
	if lastUpdate.Valid {
		g.LastUpdate = lastUpdate.Time
	}
	if dateAdded.Valid {
		g.DateAdded = dateAdded.Time
	}
	return g, nil
}

func watchedGameOrNil(row *sql.Row) (*models.WatchedGame, error) {
	g, err := scanWatchedGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// nullTime maps the zero time to NULL so never-updated entries stay NULL
// in the table.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
