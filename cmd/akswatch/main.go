package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aks-monitor/config"
	"aks-monitor/internal/database"
	"aks-monitor/internal/fetcher"
	"aks-monitor/internal/freegames"
	"aks-monitor/internal/pricing"
	"aks-monitor/internal/scraper"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "akswatch",
	Short: "AllKeyShop price monitor",
	Long: `Tracks retail prices for digital game keys and accounts on AllKeyShop,
watches a list of games for price-alert thresholds and surfaces newly
discovered free-game promotions.`,
	PersistentPreRunE: persistentPreRun,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

// persistentPreRun loads the config and sets up the logger before every
// command.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	return nil
}

// app bundles the wired-up services for the commands.
type app struct {
	db        *database.DB
	scraper   *scraper.Scraper
	pricing   *pricing.Service
	freeGames *freegames.Service
}

// newApp opens the database and wires the scraping stack on top of one
// shared rate-limited fetcher.
func newApp() (*app, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}

	f := fetcher.New(cfg.Scraper.MinRequestDelay, cfg.Scraper.RequestTimeout)
	scr := scraper.NewWithTTL(f, cfg.Scraper.CacheTTL, logger)

	return &app{
		db:        db,
		scraper:   scr,
		pricing:   pricing.NewService(db, scr, logger),
		freeGames: freegames.NewService(scr, db, logger),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}
