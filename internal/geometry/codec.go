package geometry

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// LocalPath strips a file:// scheme from an image URI
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// Decode reads the image at uri and returns its reference dimensions
func Decode(uri string) (ReferenceImage, error) {
	f, err := os.Open(LocalPath(uri))
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to open image '%s': %w", uri, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to decode image '%s': %w", uri, err)
	}
	return ReferenceImage{URI: uri, Width: cfg.Width, Height: cfg.Height}, nil
}

// FileCropper crops local JPEG/PNG files and writes the results as JPEG
type FileCropper struct {
	OutputDir string
	Quality   int
}

// NewFileCropper creates a cropper writing into outputDir
func NewFileCropper(outputDir string) *FileCropper {
	return &FileCropper{OutputDir: outputDir, Quality: 90}
}

// Crop implements Cropper
func (c *FileCropper) Crop(ctx context.Context, img ReferenceImage, area image.Rectangle) (ReferenceImage, error) {
	if err := ctx.Err(); err != nil {
		return ReferenceImage{}, err
	}

	path := LocalPath(img.URI)
	f, err := os.Open(path)
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to open image '%s': %w", path, err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to decode image '%s': %w", path, err)
	}

	if area.Empty() || !area.In(src.Bounds()) {
		return ReferenceImage{}, fmt.Errorf("crop area %v not within image bounds %v", area, src.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(dst, dst.Bounds(), src, area.Min, draw.Src)

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to create output directory '%s': %w", c.OutputDir, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(c.OutputDir, fmt.Sprintf("%s_crop_%d_%d_%dx%d.jpg",
		name, area.Min.X, area.Min.Y, area.Dx(), area.Dy()))

	out, err := os.Create(outPath)
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to create crop file: %w", err)
	}
	defer out.Close()

	quality := c.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return ReferenceImage{}, fmt.Errorf("failed to encode crop: %w", err)
	}

	return ReferenceImage{URI: outPath, Width: area.Dx(), Height: area.Dy()}, nil
}
