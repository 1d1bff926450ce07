package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdougie/catalog/internal/config"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find records similar to a text query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store != config.StorePostgres {
			return fmt.Errorf("search needs CATALOG_STORE=%s", config.StorePostgres)
		}
		ctx := cmd.Context()

		a, err := newStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.postgres.SearchSimilar(ctx, strings.Join(args, " "), searchLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matching records found.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s (%s) similarity %.3f\n", i+1, r.Name, r.VisualCode, r.Similarity)
			if r.Description != "" {
				fmt.Printf("   %s\n", r.Description)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
