package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bdougie/catalog/internal/analyzer"
	"github.com/bdougie/catalog/internal/config"
	"github.com/bdougie/catalog/internal/detect"
	"github.com/bdougie/catalog/internal/embeddings"
	"github.com/bdougie/catalog/internal/geometry"
	"github.com/bdougie/catalog/internal/ingest"
	"github.com/bdougie/catalog/internal/models"
	"github.com/bdougie/catalog/internal/pipeline"
	"github.com/bdougie/catalog/internal/storage"
)

// app owns every long-lived component for one command invocation
type app struct {
	store      storage.Storage
	postgres   *storage.PostgresStorage
	embeddings *embeddings.Service
	engine     *geometry.Engine
	auto       *ingest.Queue[ingest.AutoPayload]
	manual     *ingest.Queue[ingest.ManualPayload]
	detector   detect.Detector
	recognizer detect.TextRecognizer
	pipeline   *pipeline.Pipeline
}

// newStore opens the configured record store
func newStore(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	switch cfg.Store {
	case config.StorePostgres:
		a.embeddings = embeddings.NewService(cfg.EmbeddingWorkers, cfg.EmbeddingDim)
		pg, err := storage.NewPostgresStorage(ctx, cfg.Postgres, a.embeddings, cfg.CodePrefix, logger)
		if err != nil {
			a.embeddings.Close()
			return nil, err
		}
		a.store, a.postgres = pg, pg
	default:
		fs, err := storage.NewFileStorage(cfg.DataDir, cfg.CodePrefix)
		if err != nil {
			return nil, err
		}
		a.store = fs
	}
	return a, nil
}

// newApp opens the store and builds the queues and capture pipeline.
// The metadata generator is only connected when withVision is set.
func newApp(ctx context.Context, cfg *config.Config, withVision bool) (*app, error) {
	a, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []ingest.Option{ingest.WithLogger(logger), ingest.WithWakeBuffer(cfg.WakeBuffer)}

	var gen ingest.MetadataGenerator = unavailableGenerator{}
	if withVision {
		visionAgent, err := analyzer.NewAgent(ctx, analyzer.AgentConfig{
			BaseURL: cfg.OllamaBaseURL,
			Port:    cfg.OllamaPort,
			Model:   cfg.VisionModel,
		}, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize vision agent: %w", err)
		}
		gen = analyzer.NewMetadataGenerator(analyzer.NewAgentRunner(visionAgent), "", logger)
	}

	a.auto = ingest.NewAutoQueue(gen, a.store, opts...)
	a.manual = ingest.NewManualQueue(a.store, opts...)
	a.auto.Start(ctx)
	a.manual.Start(ctx)

	if cfg.DetectorURL != "" {
		a.detector = detect.NewHTTPClient(cfg.DetectorURL, cfg.InferenceTimeout)
	}
	if cfg.OCRURL != "" {
		a.recognizer = detect.NewHTTPClient(cfg.OCRURL, cfg.InferenceTimeout)
	}

	a.engine = geometry.NewEngine(geometry.NewFileCropper(cfg.CropsDir()), logger)
	a.pipeline = pipeline.New(a.detector, a.engine, a.auto, a.manual, logger)
	if a.recognizer != nil {
		a.pipeline.WithTextRecognizer(a.recognizer)
	}
	return a, nil
}

// wait drains both queues, giving up after timeout
func (a *app) wait(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.auto.Wait(ctx); err != nil {
		return err
	}
	return a.manual.Wait(ctx)
}

func (a *app) close() {
	if a.auto != nil {
		a.auto.Close()
	}
	if a.manual != nil {
		a.manual.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.embeddings != nil {
		a.embeddings.Close()
	}
}

// unavailableGenerator fails every auto job when no vision model is connected
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string) (models.Metadata, error) {
	return models.Metadata{}, fmt.Errorf("no vision model configured")
}
