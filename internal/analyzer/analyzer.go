package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bdougie/catalog/internal/models"
)

const metadataPrompt = `Identify the main object in this image. Reply with JSON only, in the form ` +
	`{"name": "<short item name, at most 5 words>", "description": "<one or two sentences describing the item, its brand, color and condition>"}`

// Runner sends a prompt with an image to a vision model
type Runner interface {
	Describe(ctx context.Context, prompt, imagePath string) (string, error)
}

// MetadataGenerator names catalog records from their images
type MetadataGenerator struct {
	runner Runner
	tmpDir string
	logger *slog.Logger
}

func NewMetadataGenerator(runner Runner, tmpDir string, logger *slog.Logger) *MetadataGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataGenerator{
		runner: runner,
		tmpDir: tmpDir,
		logger: logger,
	}
}

// Generate asks the vision model for a name and description of the encoded image
func (g *MetadataGenerator) Generate(ctx context.Context, imageBase64 string) (models.Metadata, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("failed to decode image: %w", err)
	}

	// the agent reads images from disk
	f, err := os.CreateTemp(g.tmpDir, "catalog-*.jpg")
	if err != nil {
		return models.Metadata{}, fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return models.Metadata{}, fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return models.Metadata{}, err
	}

	content, err := g.runner.Describe(ctx, metadataPrompt, f.Name())
	if err != nil {
		return models.Metadata{}, fmt.Errorf("vision model failed: %w", err)
	}
	g.logger.Debug("raw model response", "content", content)

	meta, err := ParseMetadata(content)
	if err != nil {
		return models.Metadata{}, err
	}
	return meta, nil
}

// ParseMetadata extracts name and description from a model reply. JSON is
// preferred; otherwise the first line is the name and the rest the description.
func ParseMetadata(content string) (models.Metadata, error) {
	content = strings.TrimSpace(content)
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		var meta models.Metadata
		if err := json.Unmarshal([]byte(content[start:end+1]), &meta); err == nil && strings.TrimSpace(meta.Name) != "" {
			meta.Name = strings.TrimSpace(meta.Name)
			meta.Description = strings.TrimSpace(meta.Description)
			return meta, nil
		}
	}

	name, rest, _ := strings.Cut(content, "\n")
	name = strings.Trim(strings.TrimSpace(name), "*#\"")
	if name == "" {
		return models.Metadata{}, fmt.Errorf("no name found in model response")
	}
	return models.Metadata{Name: name, Description: strings.TrimSpace(rest)}, nil
}
