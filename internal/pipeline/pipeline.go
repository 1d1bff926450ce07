// Package pipeline turns captured images into ingestion jobs: it runs the
// detector, normalizes and crops the candidate regions and hands each crop
// to the auto or manual queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdougie/catalog/internal/detect"
	"github.com/bdougie/catalog/internal/geometry"
	"github.com/bdougie/catalog/internal/ingest"
)

// Mode selects which detector capability produces candidate regions
type Mode string

const (
	ModeObjects  Mode = "objects"
	ModeSubjects Mode = "subjects"
	ModeWhole    Mode = "whole"
)

// CaptureOptions controls a capture run
type CaptureOptions struct {
	Mode   Mode
	Crop   geometry.CropOptions
	Parent *string
	// MinConfidence drops detected objects whose best label scores lower
	MinConfidence float64
}

// Pipeline wires detection, cropping and the two ingestion queues
type Pipeline struct {
	detector   detect.Detector
	recognizer detect.TextRecognizer
	engine     *geometry.Engine
	auto       *ingest.Queue[ingest.AutoPayload]
	manual     *ingest.Queue[ingest.ManualPayload]
	logger     *slog.Logger
}

func New(detector detect.Detector, engine *geometry.Engine, auto *ingest.Queue[ingest.AutoPayload], manual *ingest.Queue[ingest.ManualPayload], logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		detector: detector,
		engine:   engine,
		auto:     auto,
		manual:   manual,
		logger:   logger,
	}
}

// WithTextRecognizer makes Capture attach recognized text to every crop
func (p *Pipeline) WithTextRecognizer(r detect.TextRecognizer) *Pipeline {
	p.recognizer = r
	return p
}

// Capture detects candidate regions in img, crops them and enqueues one
// auto job per crop. It returns the job ids in detection order.
func (p *Pipeline) Capture(ctx context.Context, img geometry.ReferenceImage, opts CaptureOptions) ([]string, error) {
	rects, labels, err := p.candidates(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	if len(rects) == 0 {
		p.logger.Info("no candidates found", "uri", img.URI)
		return nil, nil
	}

	crops, err := p.engine.BatchCrop(ctx, rects, img, opts.Crop)
	if err != nil {
		return nil, err
	}

	payloads := make([]ingest.AutoPayload, len(crops))
	for i, c := range crops {
		rect := c.Rect
		payloads[i] = ingest.AutoPayload{
			Image:    c.Image,
			Rect:     &rect,
			Labels:   labels[i],
			Text:     p.extractText(ctx, c.Image),
			Quantity: 1,
			Parent:   opts.Parent,
		}
	}

	ids, err := p.auto.EnqueueMany(payloads)
	if err != nil {
		return nil, err
	}
	p.logger.Info("captured candidates", "uri", img.URI, "mode", opts.Mode, "jobs", len(ids))
	return ids, nil
}

// CaptureRegion crops a single user-selected region and enqueues it on the
// manual queue with the given fields
func (p *Pipeline) CaptureRegion(ctx context.Context, img geometry.ReferenceImage, rect geometry.Rect, fields ingest.Fields, crop geometry.CropOptions) (string, error) {
	crops, err := p.engine.BatchCrop(ctx, []geometry.Rect{rect}, img, crop)
	if err != nil {
		return "", err
	}
	return p.manual.Enqueue(ingest.ManualPayload{
		Image:       crops[0].Image,
		Name:        fields.Name,
		Description: fields.Description,
		Quantity:    fields.Quantity,
		Parent:      fields.Parent,
	})
}

// RefineRegion crops rect out of img, runs object detection on the crop and
// returns the detections in img's coordinate space
func (p *Pipeline) RefineRegion(ctx context.Context, img geometry.ReferenceImage, rect geometry.Rect) (geometry.DetectionResult, error) {
	if p.detector == nil {
		return geometry.DetectionResult{}, fmt.Errorf("refining a region needs a detector")
	}
	cropped, err := p.engine.Crop(ctx, img, rect)
	if err != nil {
		return geometry.DetectionResult{}, err
	}
	result, err := p.detector.DetectObjects(ctx, cropped.Image.URI)
	if err != nil {
		return geometry.DetectionResult{}, fmt.Errorf("object detection failed: %w", err)
	}
	if result.Width <= 0 || result.Height <= 0 {
		result.Width, result.Height = float64(cropped.Image.Width), float64(cropped.Image.Height)
	}
	return geometry.RemapDetectionToParent(result, cropped.Rect)
}

// extractText returns the recognized text of a crop; recognition failures
// only cost the hint, not the job
func (p *Pipeline) extractText(ctx context.Context, img geometry.ReferenceImage) string {
	if p.recognizer == nil {
		return ""
	}
	result, err := p.recognizer.RecognizeText(ctx, img.URI)
	if err != nil {
		p.logger.Warn("text recognition failed", "uri", img.URI, "error", err)
		return ""
	}
	parts := make([]string, 0, len(result.Blocks))
	for _, b := range result.Blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) candidates(ctx context.Context, img geometry.ReferenceImage, opts CaptureOptions) ([]geometry.Rect, [][]string, error) {
	if p.detector == nil && opts.Mode != ModeWhole {
		return nil, nil, fmt.Errorf("capture mode %q needs a detector", opts.Mode)
	}
	switch opts.Mode {
	case ModeWhole:
		return []geometry.Rect{{Width: float64(img.Width), Height: float64(img.Height)}}, [][]string{nil}, nil

	case ModeSubjects:
		seg, err := p.detector.SegmentSubjects(ctx, img.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("subject segmentation failed: %w", err)
		}
		return seg.Frames, make([][]string, len(seg.Frames)), nil

	case ModeObjects, "":
		result, err := p.detector.DetectObjects(ctx, img.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("object detection failed: %w", err)
		}
		// detections may come back in a resized coordinate space
		if result.Width > 0 && result.Height > 0 &&
			(result.Width != float64(img.Width) || result.Height != float64(img.Height)) {
			full := geometry.Rect{Width: float64(img.Width), Height: float64(img.Height)}
			if result, err = geometry.RemapDetectionToParent(result, full); err != nil {
				return nil, nil, err
			}
		}

		var rects []geometry.Rect
		var labels [][]string
		for _, obj := range result.DetectedObjects {
			if !passes(obj, opts.MinConfidence) {
				continue
			}
			rects = append(rects, obj.Frame)
			labels = append(labels, labelText(obj.Labels))
		}
		return rects, labels, nil

	default:
		return nil, nil, fmt.Errorf("unknown capture mode %q", opts.Mode)
	}
}

func passes(obj geometry.DetectedObject, threshold float64) bool {
	if threshold <= 0 || len(obj.Labels) == 0 {
		return true
	}
	for _, l := range obj.Labels {
		if l.Confidence >= threshold {
			return true
		}
	}
	return false
}

func labelText(labels []geometry.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Text != "" {
			out = append(out, l.Text)
		}
	}
	return out
}
