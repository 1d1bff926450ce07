package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdougie/catalog/internal/extractor"
	"github.com/bdougie/catalog/internal/geometry"
	"github.com/bdougie/catalog/internal/ingest"
	"github.com/bdougie/catalog/internal/pipeline"
)

var (
	ingestTimeout time.Duration

	autoVideo         string
	autoInterval      int
	autoMode          string
	autoParent        string
	autoMinConfidence float64

	manualName        string
	manualDescription string
	manualQuantity    int
	manualParent      string
	manualRect        string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Create catalog records from images",
}

var ingestAutoCmd = &cobra.Command{
	Use:   "auto [image]...",
	Short: "Detect objects in images and name them with the vision model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		images := args
		if autoVideo != "" {
			frames, err := extractor.ExtractFrames(ctx, autoVideo, filepath.Join(cfg.DataDir, "frames"), autoInterval, logger)
			if err != nil {
				return err
			}
			images = append(images, frames...)
		}
		if len(images) == 0 {
			return fmt.Errorf("no images given; pass image paths or --video")
		}

		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		mode := pipeline.Mode(autoMode)
		if a.detector == nil && mode != pipeline.ModeWhole {
			logger.Warn("DETECTOR_URL not set, ingesting whole images")
			mode = pipeline.ModeWhole
		}

		opts := pipeline.CaptureOptions{
			Mode:          mode,
			Crop:          geometry.CropOptions{AsSquare: cfg.CropSquare, ExpansionMultiplier: cfg.CropExpansion},
			Parent:        optional(autoParent),
			MinConfidence: autoMinConfidence,
		}
		for _, path := range images {
			img, err := geometry.Decode(path)
			if err != nil {
				logger.Error("skipping image", "path", path, "error", err)
				continue
			}
			if _, err := a.pipeline.Capture(ctx, img, opts); err != nil {
				logger.Error("capture failed", "path", path, "error", err)
			}
		}

		if err := a.wait(ctx, ingestTimeout); err != nil {
			return err
		}
		return printQueue(a.auto.Completed(), a.auto.FailedJobs())
	},
}

var ingestManualCmd = &cobra.Command{
	Use:   "manual <image>",
	Short: "Create a record from an image with a given name and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if strings.TrimSpace(manualName) == "" {
			return fmt.Errorf("--name is required")
		}

		img, err := geometry.Decode(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		fields := ingest.Fields{
			Name:        manualName,
			Description: manualDescription,
			Quantity:    manualQuantity,
			Parent:      optional(manualParent),
		}
		if manualRect != "" {
			rect, err := parseRect(manualRect)
			if err != nil {
				return err
			}
			crop := geometry.CropOptions{AsSquare: cfg.CropSquare, ExpansionMultiplier: cfg.CropExpansion}
			if _, err := a.pipeline.CaptureRegion(ctx, img, rect, fields, crop); err != nil {
				return err
			}
		} else {
			if _, err := a.manual.Enqueue(ingest.ManualPayload{
				Image:       img,
				Name:        fields.Name,
				Description: fields.Description,
				Quantity:    fields.Quantity,
				Parent:      fields.Parent,
			}); err != nil {
				return err
			}
		}

		if err := a.wait(ctx, ingestTimeout); err != nil {
			return err
		}
		return printQueue(a.manual.Completed(), a.manual.FailedJobs())
	},
}

func printQueue[P ingest.Payload](completed, failed []ingest.Job[P]) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, j := range completed {
		rec := *j.Record
		rec.ImageBase64 = ""
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	for _, j := range failed {
		logger.Error("job failed", "job", j.ID, "image", j.Payload.ImageURI(), "error", j.Error)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs failed", len(failed), len(failed)+len(completed))
	}
	return nil
}

// parseRect reads "left,top,width,height"
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("rect must be left,top,width,height: %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("rect component %q: %w", p, err)
		}
		v[i] = f
	}
	r := geometry.Rect{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}
	return r, r.Validate()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func init() {
	ingestCmd.PersistentFlags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "Maximum time to wait for the queues to drain")

	ingestAutoCmd.Flags().StringVar(&autoVideo, "video", "", "Extract frames from this video and ingest them")
	ingestAutoCmd.Flags().IntVar(&autoInterval, "interval", 15, "Seconds between extracted video frames")
	ingestAutoCmd.Flags().StringVar(&autoMode, "mode", string(pipeline.ModeObjects), "Candidate source: objects, subjects or whole")
	ingestAutoCmd.Flags().StringVar(&autoParent, "parent", "", "Parent container record id")
	ingestAutoCmd.Flags().Float64Var(&autoMinConfidence, "min-confidence", 0, "Drop detections whose best label scores lower")

	ingestManualCmd.Flags().StringVar(&manualName, "name", "", "Record name")
	ingestManualCmd.Flags().StringVar(&manualDescription, "description", "", "Record description")
	ingestManualCmd.Flags().IntVar(&manualQuantity, "quantity", 1, "Item quantity")
	ingestManualCmd.Flags().StringVar(&manualParent, "parent", "", "Parent container record id")
	ingestManualCmd.Flags().StringVar(&manualRect, "rect", "", "Crop region as left,top,width,height")

	ingestCmd.AddCommand(ingestAutoCmd, ingestManualCmd)
	rootCmd.AddCommand(ingestCmd)
}
