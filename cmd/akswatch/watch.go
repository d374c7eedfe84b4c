package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aks-monitor/internal/pricing"
	"aks-monitor/internal/scraper"
)

var (
	watchKeyThreshold     float64
	watchAccountThreshold float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the watch list",
}

// watchAddCmd searches for the game, auto-picks the best match (PC
// preferred) and adds it to the watch list with an immediate price fetch.
var watchAddCmd = &cobra.Command{
	Use:     "add <game name>",
	Short:   "Add a game to the watch list",
	Example: `  akswatch watch add "Elden Ring" --key-threshold 30`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runWatchAdd,
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the watch list",
	RunE:  runWatchList,
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a game from the watch list",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchRemove,
}

var watchThresholdCmd = &cobra.Command{
	Use:   "threshold <id> <key> <account>",
	Short: "Set the alert thresholds of a watched game (0 disables)",
	Args:  cobra.ExactArgs(3),
	RunE:  runWatchThreshold,
}

func init() {
	watchAddCmd.Flags().Float64Var(&watchKeyThreshold, "key-threshold", 0, "alert when the key price drops to this value")
	watchAddCmd.Flags().Float64Var(&watchAccountThreshold, "account-threshold", 0, "alert when the account price drops to this value")

	watchCmd.AddCommand(watchAddCmd, watchListCmd, watchRemoveCmd, watchThresholdCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatchAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	query := strings.Join(args, " ")

	results := a.scraper.Search(ctx, query)
	if len(results) == 0 {
		return fmt.Errorf("no AllKeyShop results for %q", query)
	}
	match := scraper.PickPreferPC(results)

	game, err := a.pricing.Watch(match.Title, match.URL, match.ImageURL, watchKeyThreshold, watchAccountThreshold)
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (id %d)\n", game.GameName, game.ID)

	if err := a.pricing.Reconcile(ctx, game); err != nil {
		fmt.Printf("Initial price fetch failed: %v\n", err)
		return nil
	}
	printGamePrices(game.KeyPrice, game.KeySeller, game.AccountPrice, game.AccountSeller)
	return nil
}

func runWatchList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	games, err := a.pricing.List()
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("The watch list is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGAME\tKEY\tACCOUNT\tTHRESHOLDS\tALERT\tUPDATED")
	for _, g := range games {
		alert := ""
		if pricing.HasAlert(g) {
			alert = "💰"
		}
		updated := "never"
		if !g.LastUpdate.IsZero() {
			updated = g.LastUpdate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.GameName,
			cliPrice(g.KeyPrice, g.KeySeller), cliPrice(g.AccountPrice, g.AccountSeller),
			cliThresholds(g.KeyThreshold, g.AccountThreshold), alert, updated)
	}
	return w.Flush()
}

func runWatchRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	if err := a.pricing.Unwatch(id); err != nil {
		return err
	}
	fmt.Printf("Removed game %d from the watch list.\n", id)
	return nil
}

func runWatchThreshold(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	key, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid key threshold %q", args[1])
	}
	account, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid account threshold %q", args[2])
	}

	if err := a.pricing.UpdateThresholds(id, key, account); err != nil {
		return err
	}
	fmt.Printf("Updated thresholds of game %d: %s\n", id, cliThresholds(key, account))
	return nil
}

func printGamePrices(keyPrice float64, keySeller string, accountPrice float64, accountSeller string) {
	fmt.Printf("Key: %s\n", cliPrice(keyPrice, keySeller))
	fmt.Printf("Account: %s\n", cliPrice(accountPrice, accountSeller))
}

func cliPrice(price float64, seller string) string {
	if price <= 0 {
		return "N/A"
	}
	if seller == "" {
		return fmt.Sprintf("%.2f€", price)
	}
	return fmt.Sprintf("%.2f€ (%s)", price, seller)
}

func cliThresholds(key, account float64) string {
	var parts []string
	if key > 0 {
		parts = append(parts, fmt.Sprintf("K:%.2f€", key))
	}
	if account > 0 {
		parts = append(parts, fmt.Sprintf("A:%.2f€", account))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " | ")
}
