package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrInvalidRect is returned for rectangles with non-positive or non-finite dimensions
	ErrInvalidRect = errors.New("invalid rect")

	// ErrInvalidDetection is returned when a detection result has no usable dimensions
	ErrInvalidDetection = errors.New("invalid detection result")
)

// Rect is an axis-aligned pixel rectangle relative to a reference image
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size holds the pixel dimensions used as bounds for expand and square operations
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ReferenceImage identifies a decoded image and its pixel dimensions
type ReferenceImage struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Bounds returns the image dimensions as a Size
func (img ReferenceImage) Bounds() Size {
	return Size{Width: float64(img.Width), Height: float64(img.Height)}
}

// Validate rejects rectangles with non-positive width/height or non-finite fields
func (r Rect) Validate() error {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidRect, r)
		}
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: width=%v height=%v", ErrInvalidRect, r.Width, r.Height)
	}
	return nil
}

// Center returns the center point of the rectangle
func (r Rect) Center() (float64, float64) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// Within reports whether r lies entirely inside [0,0]..bounds
func (r Rect) Within(bounds Size) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Left+r.Width <= bounds.Width &&
		r.Top+r.Height <= bounds.Height
}

// Round rounds every field to the nearest integer independently
func (r Rect) Round() Rect {
	return Rect{
		Left:   math.Round(r.Left),
		Top:    math.Round(r.Top),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// Pixels converts r to the integer rectangle handed to the image codec
func (r Rect) Pixels() image.Rectangle {
	rr := r.Round()
	x0, y0 := int(rr.Left), int(rr.Top)
	return image.Rect(x0, y0, x0+int(rr.Width), y0+int(rr.Height))
}

// rectFromPixels converts an integer rectangle back to a Rect
func rectFromPixels(area image.Rectangle) Rect {
	return Rect{
		Left:   float64(area.Min.X),
		Top:    float64(area.Min.Y),
		Width:  float64(area.Dx()),
		Height: float64(area.Dy()),
	}
}

// Expand scales rect about its own center by multiplier.
// The enlarged rect is returned, rounded, only if it fits within bounds;
// otherwise the original rect is returned with expanded=false.
func Expand(rect Rect, multiplier float64, bounds Size) (Rect, bool, error) {
	if err := rect.Validate(); err != nil {
		return rect, false, err
	}
	if multiplier <= 1 {
		return rect, false, nil
	}

	cx, cy := rect.Center()
	w := rect.Width * multiplier
	h := rect.Height * multiplier
	grown := Rect{Left: cx - w/2, Top: cy - h/2, Width: w, Height: h}
	if !grown.Within(bounds) {
		return rect, false, nil
	}
	return grown.Round(), true, nil
}

// ToSquare re-centers a square of side max(width, height) on rect's center.
// Falls back to the original rect with squared=false when the square would leave bounds.
func ToSquare(rect Rect, bounds Size) (Rect, bool, error) {
	if err := rect.Validate(); err != nil {
		return rect, false, err
	}

	side := math.Max(rect.Width, rect.Height)
	cx, cy := rect.Center()
	sq := Rect{Left: cx - side/2, Top: cy - side/2, Width: side, Height: side}
	if !sq.Within(bounds) {
		return rect, false, nil
	}
	return sq.Round(), true, nil
}
