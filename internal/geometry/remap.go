package geometry

import "fmt"

// Label is a classification attached to a detected object
type Label struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
}

// DetectedObject is one region reported by a detector
type DetectedObject struct {
	Frame  Rect    `json:"frame"`
	Labels []Label `json:"labels"`
}

// DetectionResult is the detector output for an image of Width x Height pixels
type DetectionResult struct {
	Width           float64          `json:"width"`
	Height          float64          `json:"height"`
	DetectedObjects []DetectedObject `json:"detectedObjects"`
}

// RemapDetectionToParent rescales and offsets every region of a detection
// run on a cropped sub-image back into the parent image's coordinate space.
// The returned result has the dimensions of cropRect.
func RemapDetectionToParent(result DetectionResult, cropRect Rect) (DetectionResult, error) {
	if err := cropRect.Validate(); err != nil {
		return DetectionResult{}, err
	}
	if result.Width <= 0 || result.Height <= 0 {
		return DetectionResult{}, fmt.Errorf("%w: %vx%v", ErrInvalidDetection, result.Width, result.Height)
	}

	scaleX := cropRect.Width / result.Width
	scaleY := cropRect.Height / result.Height

	out := DetectionResult{
		Width:           cropRect.Width,
		Height:          cropRect.Height,
		DetectedObjects: make([]DetectedObject, 0, len(result.DetectedObjects)),
	}
	for _, obj := range result.DetectedObjects {
		f := obj.Frame
		out.DetectedObjects = append(out.DetectedObjects, DetectedObject{
			Frame: Rect{
				Left:   cropRect.Left + f.Left*scaleX,
				Top:    cropRect.Top + f.Top*scaleY,
				Width:  f.Width * scaleX,
				Height: f.Height * scaleY,
			},
			Labels: append([]Label(nil), obj.Labels...),
		})
	}
	return out, nil
}
