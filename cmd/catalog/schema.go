package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdougie/catalog/internal/storage"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the Postgres schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the records table and vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.InitSchema(cmd.Context(), cfg.Postgres, cfg.EmbeddingDim); err != nil {
			return err
		}
		logger.Info("schema initialized", "dimensions", cfg.EmbeddingDim)
		fmt.Println("Schema ready.")
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaInitCmd)
	rootCmd.AddCommand(schemaCmd)
}
