package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdougie/catalog/internal/detect"
	"github.com/bdougie/catalog/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Read container codes from a photo and look them up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OCRURL == "" {
			return fmt.Errorf("OCR_URL is not set")
		}
		ctx := cmd.Context()

		a, err := newStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		recognizer := detect.NewHTTPClient(cfg.OCRURL, cfg.InferenceTimeout)
		hits, err := scan.NewScanner(recognizer, a.store, logger).Scan(ctx, args[0])
		if err != nil {
			return err
		}
		if container, ok := scan.First(hits); ok {
			logger.Info("container found", "id", container.ID, "name", container.Name, "code", container.VisualCode)
		} else {
			logger.Info("no known container in image", "codes", len(hits))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
