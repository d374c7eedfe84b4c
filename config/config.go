// Package config loads the application configuration from an optional YAML
// file, a .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"aks-monitor/internal/models"
)

// Config holds the application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig holds the sqlite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ScraperConfig holds outbound HTTP and cache tuning.
type ScraperConfig struct {
	MinRequestDelay time.Duration `mapstructure:"min_request_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// MonitorConfig holds the polling defaults applied on first run, before a
// settings blob exists in the database.
type MonitorConfig struct {
	PriceUpdateIntervalMinutes    int      `mapstructure:"price_update_interval_minutes"`
	FreeGamesCheckIntervalMinutes int      `mapstructure:"free_games_check_interval_minutes"`
	NotificationsEnabled          bool     `mapstructure:"notifications_enabled"`
	PriceAlertsEnabled            bool     `mapstructure:"price_alerts_enabled"`
	EnabledPlatforms              []string `mapstructure:"enabled_platforms"`
}

// TelegramConfig holds the optional notification credentials.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// LoggingConfig holds logger tuning.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration. configPath may be empty, in which case
// config.yaml next to the binary or under ./config is used when present.
func Load(configPath string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AKS")
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Settings converts the monitor section into the persisted settings shape.
func (c *Config) Settings() models.ExtensionSettings {
	return models.ExtensionSettings{
		EnabledPlatforms:              c.Monitor.EnabledPlatforms,
		PriceUpdateIntervalMinutes:    c.Monitor.PriceUpdateIntervalMinutes,
		FreeGamesCheckIntervalMinutes: c.Monitor.FreeGamesCheckIntervalMinutes,
		NotificationsEnabled:          c.Monitor.NotificationsEnabled,
		PriceAlertsEnabled:            c.Monitor.PriceAlertsEnabled,
	}
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	v.BindEnv("logging.level", "LOG_LEVEL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./akswatch.db")

	v.SetDefault("scraper.min_request_delay", 500*time.Millisecond)
	v.SetDefault("scraper.request_timeout", 30*time.Second)
	v.SetDefault("scraper.cache_ttl", 10*time.Minute)

	v.SetDefault("monitor.price_update_interval_minutes", 60)
	v.SetDefault("monitor.free_games_check_interval_minutes", 120)
	v.SetDefault("monitor.notifications_enabled", true)
	v.SetDefault("monitor.price_alerts_enabled", true)
	v.SetDefault("monitor.enabled_platforms", []string{})

	v.SetDefault("logging.level", "info")
}
