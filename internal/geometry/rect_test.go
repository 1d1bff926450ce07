package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestExpand(t *testing.T) {
	rect := Rect{Left: 10, Top: 10, Width: 10, Height: 10}

	tests := []struct {
		name       string
		multiplier float64
		bounds     Size
		want       Rect
		expanded   bool
	}{
		{"fits", 2, Size{100, 100}, Rect{5, 5, 20, 20}, true},
		{"exceeds bounds", 2, Size{15, 15}, rect, false},
		{"multiplier one", 1, Size{100, 100}, rect, false},
		{"multiplier below one", 0.5, Size{100, 100}, rect, false},
		{"negative origin", 4, Size{100, 100}, rect, false},
		{"rounded", 1.5, Size{100, 100}, Rect{8, 8, 15, 15}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expanded, err := Expand(rect, tt.multiplier, tt.bounds)
			if err != nil {
				t.Fatalf("Expand returned error: %v", err)
			}
			if got != tt.want || expanded != tt.expanded {
				t.Fatalf("Expand = %+v, %v; want %+v, %v", got, expanded, tt.want, tt.expanded)
			}
		})
	}
}

func TestExpandRejectsMalformedRect(t *testing.T) {
	for _, r := range []Rect{
		{Width: 0, Height: 10},
		{Width: 10, Height: -1},
		{Left: math.NaN(), Width: 1, Height: 1},
		{Width: math.Inf(1), Height: 1},
	} {
		if _, _, err := Expand(r, 2, Size{100, 100}); !errors.Is(err, ErrInvalidRect) {
			t.Fatalf("Expand(%+v) error = %v, want ErrInvalidRect", r, err)
		}
	}
}

func TestToSquare(t *testing.T) {
	got, squared, err := ToSquare(Rect{Left: 10, Top: 20, Width: 20, Height: 10}, Size{100, 100})
	if err != nil {
		t.Fatalf("ToSquare returned error: %v", err)
	}
	want := Rect{Left: 10, Top: 15, Width: 20, Height: 20}
	if !squared || got != want {
		t.Fatalf("ToSquare = %+v, %v; want %+v, true", got, squared, want)
	}

	orig := Rect{Left: 0, Top: 0, Width: 20, Height: 10}
	got, squared, err = ToSquare(orig, Size{100, 100})
	if err != nil {
		t.Fatalf("ToSquare returned error: %v", err)
	}
	if squared || got != orig {
		t.Fatalf("ToSquare out of bounds = %+v, %v; want original rect", got, squared)
	}

	if _, _, err := ToSquare(Rect{Width: -1, Height: 1}, Size{10, 10}); !errors.Is(err, ErrInvalidRect) {
		t.Fatalf("ToSquare error = %v, want ErrInvalidRect", err)
	}
}

func TestPixels(t *testing.T) {
	px := Rect{Left: 4.6, Top: 0.4, Width: 10.5, Height: 9.49}.Pixels()
	if px.Min.X != 5 || px.Min.Y != 0 || px.Dx() != 11 || px.Dy() != 9 {
		t.Fatalf("Pixels = %v", px)
	}
}

func TestRemapDetectionToParent(t *testing.T) {
	crop := Rect{Left: 100, Top: 50, Width: 200, Height: 100}
	result := DetectionResult{
		Width:  400,
		Height: 200,
		DetectedObjects: []DetectedObject{
			{Frame: Rect{Left: 0, Top: 0, Width: 400, Height: 200}, Labels: []Label{{Text: "box"}}},
			{Frame: Rect{Left: 40, Top: 20, Width: 80, Height: 60}},
		},
	}

	got, err := RemapDetectionToParent(result, crop)
	if err != nil {
		t.Fatalf("RemapDetectionToParent returned error: %v", err)
	}
	if got.Width != 200 || got.Height != 100 {
		t.Fatalf("dimensions = %vx%v, want 200x100", got.Width, got.Height)
	}
	if got.DetectedObjects[0].Frame != crop {
		t.Fatalf("full-frame region = %+v, want %+v", got.DetectedObjects[0].Frame, crop)
	}
	if got.DetectedObjects[0].Labels[0].Text != "box" {
		t.Fatalf("labels not carried over: %+v", got.DetectedObjects[0].Labels)
	}
	want := Rect{Left: 120, Top: 60, Width: 40, Height: 30}
	if got.DetectedObjects[1].Frame != want {
		t.Fatalf("region = %+v, want %+v", got.DetectedObjects[1].Frame, want)
	}
}

func TestRemapDetectionRejectsEmptyResult(t *testing.T) {
	_, err := RemapDetectionToParent(DetectionResult{}, Rect{Width: 1, Height: 1})
	if !errors.Is(err, ErrInvalidDetection) {
		t.Fatalf("error = %v, want ErrInvalidDetection", err)
	}
}
