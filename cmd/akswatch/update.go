package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aks-monitor/internal/pricing"
)

var updateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Refresh prices of watched games",
	Long: `Refresh the stored prices of every watched game, or of a single
game when an id is given, and print the games whose thresholds fired.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		game, err := a.pricing.ReconcileByID(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s updated.\n", game.GameName)
		printGamePrices(game.KeyPrice, game.KeySeller, game.AccountPrice, game.AccountSeller)
		if pricing.HasAlert(*game) {
			fmt.Println("💰 Price alert threshold reached!")
		}
		return nil
	}

	updated, err := a.pricing.UpdateAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d games.\n", updated)

	alerts, err := a.pricing.GamesWithAlerts()
	if err != nil {
		return err
	}
	for _, g := range alerts {
		fmt.Printf("💰 %s: key %s, account %s (thresholds %s)\n",
			g.GameName,
			cliPrice(g.KeyPrice, g.KeySeller), cliPrice(g.AccountPrice, g.AccountSeller),
			cliThresholds(g.KeyThreshold, g.AccountThreshold))
	}
	return nil
}
