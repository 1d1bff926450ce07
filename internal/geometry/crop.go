package geometry

import (
	"context"
	"fmt"
	"image"
	"log/slog"
)

// Cropper cuts the exact integer pixel rectangle out of an image and
// returns a reference to the new sub-image
type Cropper interface {
	Crop(ctx context.Context, img ReferenceImage, area image.Rectangle) (ReferenceImage, error)
}

// CropOptions controls how BatchCrop normalizes each rect before cropping
type CropOptions struct {
	AsSquare            bool
	ExpansionMultiplier float64
}

// Cropped pairs a cropped sub-image with the rect it was cut from
type Cropped struct {
	Image ReferenceImage `json:"image"`
	Rect  Rect           `json:"rect"`
}

// Engine applies rect normalization and delegates pixel work to a Cropper
type Engine struct {
	cropper Cropper
	logger  *slog.Logger
}

// NewEngine creates a geometry engine backed by the given cropper
func NewEngine(cropper Cropper, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cropper: cropper, logger: logger}
}

// Crop cuts rect out of img. Parts of rect outside the image are clipped
// off first; the returned Rect is the pixel rectangle actually cropped.
func (e *Engine) Crop(ctx context.Context, img ReferenceImage, rect Rect) (Cropped, error) {
	if err := rect.Validate(); err != nil {
		return Cropped{}, err
	}
	area := rect.Pixels()
	if img.Width > 0 && img.Height > 0 {
		area = area.Intersect(image.Rect(0, 0, img.Width, img.Height))
		if area.Empty() {
			return Cropped{}, fmt.Errorf("%w: %+v lies outside %dx%d image", ErrInvalidRect, rect, img.Width, img.Height)
		}
	}
	out, err := e.cropper.Crop(ctx, img, area)
	if err != nil {
		return Cropped{}, fmt.Errorf("failed to crop %s: %w", img.URI, err)
	}
	return Cropped{Image: out, Rect: rectFromPixels(area)}, nil
}

// Normalize applies the expansion and optional squaring steps to a single rect
func (e *Engine) Normalize(rect Rect, bounds Size, opts CropOptions) (Rect, error) {
	r, expanded, err := Expand(rect, opts.ExpansionMultiplier, bounds)
	if err != nil {
		return Rect{}, err
	}
	squared := false
	if opts.AsSquare {
		if r, squared, err = ToSquare(r, bounds); err != nil {
			return Rect{}, err
		}
	}
	e.logger.Debug("normalized rect",
		"input", rect,
		"output", r,
		"expanded", expanded,
		"squared", squared,
	)
	return r, nil
}

// BatchCrop normalizes and crops each rect sequentially, preserving input order.
// Any malformed rect aborts the batch before cropping begins. Each result
// carries the clipped rect that was actually cropped.
func (e *Engine) BatchCrop(ctx context.Context, rects []Rect, img ReferenceImage, opts CropOptions) ([]Cropped, error) {
	bounds := img.Bounds()

	normalized := make([]Rect, len(rects))
	for i, r := range rects {
		n, err := e.Normalize(r, bounds, opts)
		if err != nil {
			return nil, fmt.Errorf("rect %d: %w", i, err)
		}
		normalized[i] = n
	}

	out := make([]Cropped, 0, len(rects))
	for i, r := range normalized {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cropped, err := e.Crop(ctx, img, r)
		if err != nil {
			return nil, fmt.Errorf("rect %d: %w", i, err)
		}
		e.logger.Debug("cropped region",
			"index", i,
			"source", img.URI,
			"uri", cropped.Image.URI,
			"rect", cropped.Rect,
		)
		out = append(out, cropped)
	}
	return out, nil
}
