package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/bdougie/catalog/internal/geometry"
)

// ImageEncoder reads an image and returns its base64 encoding
type ImageEncoder interface {
	Encode(ctx context.Context, uri string) (string, error)
}

// FileEncoder encodes local files
type FileEncoder struct{}

// Encode implements ImageEncoder
func (FileEncoder) Encode(ctx context.Context, uri string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(geometry.LocalPath(uri))
	if err != nil {
		return "", fmt.Errorf("failed to read image '%s': %w", uri, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image '%s' is empty: %w", uri, ErrMissingImage)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
