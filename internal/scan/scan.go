package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdougie/catalog/internal/detect"
	"github.com/bdougie/catalog/internal/models"
	"github.com/bdougie/catalog/internal/visualcode"
)

// ContainerFinder looks up containers by their printed code
type ContainerFinder interface {
	FindByVisualCode(ctx context.Context, code string) (*models.Container, error)
}

// Hit is a code read from an image and the container it resolved to, if any
type Hit struct {
	Match     visualcode.Match  `json:"match"`
	LookupKey string            `json:"lookupKey,omitempty"`
	Container *models.Container `json:"container,omitempty"`
}

// Scanner reads visual codes from images and resolves them to containers
type Scanner struct {
	recognizer detect.TextRecognizer
	containers ContainerFinder
	logger     *slog.Logger
}

func NewScanner(recognizer detect.TextRecognizer, containers ContainerFinder, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{recognizer: recognizer, containers: containers, logger: logger}
}

// Scan recognizes text in the image and looks up every valid or correctable code.
// Each distinct lookup key is queried once.
func (s *Scanner) Scan(ctx context.Context, imageURI string) ([]Hit, error) {
	text, err := s.recognizer.RecognizeText(ctx, imageURI)
	if err != nil {
		return nil, fmt.Errorf("text recognition failed: %w", err)
	}

	var hits []Hit
	for _, block := range text.Blocks {
		for _, m := range visualcode.FindInText(block.Text) {
			hits = append(hits, Hit{Match: m, LookupKey: m.Resolve()})
		}
	}

	resolved := make(map[string]*models.Container)
	for i := range hits {
		key := hits[i].LookupKey
		if key == "" {
			continue
		}
		container, seen := resolved[key]
		if !seen {
			container, err = s.containers.FindByVisualCode(ctx, key)
			if err != nil {
				// one failed lookup leaves that hit unresolved
				s.logger.Warn("visual code lookup failed", "code", key, "error", err)
				container = nil
			}
			resolved[key] = container
		}
		hits[i].Container = container
	}

	s.logger.Debug("scanned image", "uri", imageURI, "blocks", len(text.Blocks), "codes", len(hits), "lookups", len(resolved))
	return hits, nil
}

// First returns the first hit that resolved to a container
func First(hits []Hit) (*models.Container, bool) {
	for _, h := range hits {
		if h.Container != nil {
			return h.Container, true
		}
	}
	return nil, false
}
