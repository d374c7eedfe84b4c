package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change the stored runtime settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a stored setting",
	Long: `Change one of the stored runtime settings. Keys:

  price-interval      minutes between price update cycles
  freegames-interval  minutes between free-game checks
  notifications       true or false
  price-alerts        true or false
  platforms           comma-separated platform labels (empty enables all)`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := a.db.LoadSettings()
	if err != nil {
		return err
	}

	platforms := "all"
	if len(settings.EnabledPlatforms) > 0 {
		platforms = strings.Join(settings.EnabledPlatforms, ", ")
	}
	fmt.Printf("price-interval:      %d min\n", settings.PriceUpdateIntervalMinutes)
	fmt.Printf("freegames-interval:  %d min\n", settings.FreeGamesCheckIntervalMinutes)
	fmt.Printf("notifications:       %t\n", settings.NotificationsEnabled)
	fmt.Printf("price-alerts:        %t\n", settings.PriceAlertsEnabled)
	fmt.Printf("platforms:           %s\n", platforms)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := a.db.LoadSettings()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	switch key {
	case "price-interval":
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < 1 {
			return fmt.Errorf("price-interval needs a positive number of minutes")
		}
		settings.PriceUpdateIntervalMinutes = minutes
	case "freegames-interval":
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < 1 {
			return fmt.Errorf("freegames-interval needs a positive number of minutes")
		}
		settings.FreeGamesCheckIntervalMinutes = minutes
	case "notifications":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("notifications needs true or false")
		}
		settings.NotificationsEnabled = enabled
	case "price-alerts":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("price-alerts needs true or false")
		}
		settings.PriceAlertsEnabled = enabled
	case "platforms":
		settings.EnabledPlatforms = nil
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				settings.EnabledPlatforms = append(settings.EnabledPlatforms, p)
			}
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	if err := a.db.SaveSettings(settings); err != nil {
		return err
	}
	fmt.Println("Settings saved.")
	return nil
}
