package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var freegamesCmd = &cobra.Command{
	Use:   "freegames",
	Short: "Free game giveaways",
}

var freegamesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch the deals widget and record new giveaways",
	RunE:  runFreegamesCheck,
}

var freegamesHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded giveaways",
	RunE:  runFreegamesHistory,
}

func init() {
	freegamesCmd.AddCommand(freegamesCheckCmd, freegamesHistoryCmd)
	rootCmd.AddCommand(freegamesCmd)
}

func runFreegamesCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fresh, err := a.freeGames.CheckForNewDeals(context.Background())
	if err != nil {
		return err
	}
	if len(fresh) == 0 {
		fmt.Println("No new free games.")
		return nil
	}
	for _, g := range fresh {
		fmt.Printf("🎁 %s (%s)\n", g.GameName, g.Platform)
	}
	return nil
}

func runFreegamesHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	games, err := a.freeGames.History()
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("No giveaways recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tPLATFORM\tSEEN")
	for _, g := range games {
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.GameName, g.Platform, g.FoundAt.Format("2006-01-02"))
	}
	return w.Flush()
}
