package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aks-monitor/internal/bot"
	"aks-monitor/internal/monitor"
)

// runCmd starts the polling daemon, with the Telegram surface when a token
// is configured.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon",
	Long: `Polls the watch list and the free-games widget on their configured
intervals. When a Telegram token is configured, price alerts and new free
games are delivered to the configured chat and the interactive commands
(/watch, /list, /remove, /check, /freegames) are served.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// First run: seed the stored settings from the config file defaults.
	hasSettings, err := a.db.HasSettings()
	if err != nil {
		return err
	}
	if !hasSettings {
		if err := a.db.SaveSettings(cfg.Settings()); err != nil {
			return err
		}
	}
	settings, err := a.db.LoadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier monitor.Notifier
	if cfg.Telegram.Token != "" {
		api, err := bot.Init(cfg.Telegram.Token, logger)
		if err != nil {
			return err
		}
		notifier = bot.NewNotifier(api, cfg.Telegram.ChatID)

		handler := bot.NewHandler(api, a.pricing, a.freeGames, a.scraper, cfg.Telegram.ChatID, logger)
		go handler.Run(ctx)
	} else {
		logger.Info().Msg("no Telegram token configured, running headless")
	}

	m := monitor.New(
		a.pricing, a.freeGames, a.db, notifier,
		time.Duration(settings.PriceUpdateIntervalMinutes)*time.Minute,
		time.Duration(settings.FreeGamesCheckIntervalMinutes)*time.Minute,
		logger,
	)
	m.Start(ctx)
	return nil
}
