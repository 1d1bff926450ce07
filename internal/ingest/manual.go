package ingest

import (
	"context"

	"github.com/bdougie/catalog/internal/geometry"
)

// ManualPayload carries caller-supplied record fields
type ManualPayload struct {
	Image       geometry.ReferenceImage `json:"image"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Quantity    int                     `json:"quantity"`
	Parent      *string                 `json:"parent,omitempty"`
}

// ImageURI implements Payload
func (p ManualPayload) ImageURI() string { return p.Image.URI }

// passThrough returns the payload's own fields
func passThrough(_ context.Context, p ManualPayload, _ string) (Fields, error) {
	return Fields{
		Name:        p.Name,
		Description: p.Description,
		Quantity:    p.Quantity,
		Parent:      p.Parent,
	}, nil
}

// NewManualQueue creates the queue that uses caller-supplied names and descriptions
func NewManualQueue(creator RecordCreator, opts ...Option) *Queue[ManualPayload] {
	return New[ManualPayload]("manual", ResolverFunc[ManualPayload](passThrough), creator, opts...)
}
