package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// searchCmd queries the quicksearch endpoint and prints the result rows.
var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search AllKeyShop for a game",
	Example: `  akswatch search "Cyberpunk 2077"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	results := a.scraper.Search(context.Background(), query)
	if len(results) == 0 {
		fmt.Printf("No results for %q.\n", query)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tPLATFORM\tYEAR\tPRICE\tSTOCK\tURL")
	for i, r := range results {
		stock := "out of stock"
		price := "N/A"
		if r.InStock {
			stock = "in stock"
			price = fmt.Sprintf("%.2f€", r.Price)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", i+1, r.Title, r.Platform, r.Year, price, stock, r.URL)
	}
	return w.Flush()
}
