package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bdougie/catalog/internal/geometry"
	"github.com/bdougie/catalog/internal/models"
)

// MetadataGenerator produces a name and description from an encoded image
type MetadataGenerator interface {
	Generate(ctx context.Context, imageBase64 string) (models.Metadata, error)
}

// AutoPayload is a detected region whose name and description are generated
type AutoPayload struct {
	Image    geometry.ReferenceImage `json:"image"`
	Rect     *geometry.Rect          `json:"rect,omitempty"`
	Labels   []string                `json:"labels,omitempty"`
	Text     string                  `json:"text,omitempty"`
	Quantity int                     `json:"quantity"`
	Parent   *string                 `json:"parent,omitempty"`
}

// ImageURI implements Payload
func (p AutoPayload) ImageURI() string { return p.Image.URI }

// AutoResolver resolves fields through a metadata generator
type AutoResolver struct {
	Generator MetadataGenerator
}

// Resolve implements Resolver
func (r AutoResolver) Resolve(ctx context.Context, p AutoPayload, imageBase64 string) (Fields, error) {
	meta, err := r.Generator.Generate(ctx, imageBase64)
	if err != nil {
		return Fields{}, fmt.Errorf("metadata generation failed: %w", err)
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		return Fields{}, errors.New("metadata generation returned an empty name")
	}

	desc := strings.TrimSpace(meta.Description)
	if text := strings.TrimSpace(p.Text); text != "" && !strings.Contains(desc, text) {
		if desc != "" {
			desc += "\n"
		}
		desc += "Text: " + text
	}
	return Fields{Name: name, Description: desc, Quantity: p.Quantity, Parent: p.Parent}, nil
}

// NewAutoQueue creates the queue that names records from their images
func NewAutoQueue(gen MetadataGenerator, creator RecordCreator, opts ...Option) *Queue[AutoPayload] {
	return New[AutoPayload]("auto", AutoResolver{Generator: gen}, creator, opts...)
}
