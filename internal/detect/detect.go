package detect

import (
	"context"

	"github.com/bdougie/catalog/internal/geometry"
)

// SegmentResult holds subject frames found by segmentation
type SegmentResult struct {
	Frames []geometry.Rect `json:"frames"`
	Mask   string          `json:"mask,omitempty"`
}

// TextLine is one recognized line of text
type TextLine struct {
	Text string        `json:"text"`
	Rect geometry.Rect `json:"rect"`
}

// TextBlock is a paragraph-level block of recognized text
type TextBlock struct {
	Text  string        `json:"text"`
	Rect  geometry.Rect `json:"rect"`
	Lines []TextLine    `json:"lines"`
}

// TextResult is the output of text recognition on an image
type TextResult struct {
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Blocks []TextBlock `json:"blocks"`
}

// Detector finds candidate regions in an image
type Detector interface {
	SegmentSubjects(ctx context.Context, imageURI string) (SegmentResult, error)
	DetectObjects(ctx context.Context, imageURI string) (geometry.DetectionResult, error)
}

// TextRecognizer extracts text blocks from an image
type TextRecognizer interface {
	RecognizeText(ctx context.Context, imageURI string) (TextResult, error)
}
