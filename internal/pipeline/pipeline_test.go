package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/bdougie/catalog/internal/detect"
	"github.com/bdougie/catalog/internal/geometry"
	"github.com/bdougie/catalog/internal/ingest"
	"github.com/bdougie/catalog/internal/models"
)

type stubDetector struct {
	objects  geometry.DetectionResult
	subjects detect.SegmentResult
	seen     []string
}

func (d *stubDetector) SegmentSubjects(_ context.Context, uri string) (detect.SegmentResult, error) {
	d.seen = append(d.seen, uri)
	return d.subjects, nil
}

func (d *stubDetector) DetectObjects(_ context.Context, uri string) (geometry.DetectionResult, error) {
	d.seen = append(d.seen, uri)
	return d.objects, nil
}

type stubCropper struct{}

func (stubCropper) Crop(_ context.Context, img geometry.ReferenceImage, area image.Rectangle) (geometry.ReferenceImage, error) {
	return geometry.ReferenceImage{
		URI:    fmt.Sprintf("%s@%d,%d,%dx%d", img.URI, area.Min.X, area.Min.Y, area.Dx(), area.Dy()),
		Width:  area.Dx(),
		Height: area.Dy(),
	}, nil
}

type stubEncoder struct{}

func (stubEncoder) Encode(_ context.Context, uri string) (string, error) { return "b64:" + uri, nil }

type stubRecognizer struct{}

func (stubRecognizer) RecognizeText(_ context.Context, uri string) (detect.TextResult, error) {
	return detect.TextResult{Blocks: []detect.TextBlock{{Text: "ACME"}, {Text: " 12V "}}}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (models.Metadata, error) {
	return models.Metadata{Name: "Thing"}, nil
}

type memCreator struct {
	mu   sync.Mutex
	recs []models.NewRecord
}

func (c *memCreator) CreateRecord(_ context.Context, rec models.NewRecord) (models.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	return models.Record{ID: fmt.Sprint(len(c.recs)), Name: rec.Name}, nil
}

func newPipeline(t *testing.T, det *stubDetector) (*Pipeline, *ingest.Queue[ingest.AutoPayload], *ingest.Queue[ingest.ManualPayload], *memCreator) {
	t.Helper()
	creator := &memCreator{}
	auto := ingest.NewAutoQueue(stubGenerator{}, creator, ingest.WithEncoder(stubEncoder{}))
	manual := ingest.NewManualQueue(creator, ingest.WithEncoder(stubEncoder{}))
	return New(det, geometry.NewEngine(stubCropper{}, nil), auto, manual, nil), auto, manual, creator
}

func drain[P ingest.Payload](t *testing.T, q *ingest.Queue[P]) {
	t.Helper()
	q.Start(context.Background())
	t.Cleanup(q.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestCaptureObjects(t *testing.T) {
	det := &stubDetector{objects: geometry.DetectionResult{
		Width:  50,
		Height: 50,
		DetectedObjects: []geometry.DetectedObject{
			{Frame: geometry.Rect{Left: 5, Top: 5, Width: 5, Height: 5}, Labels: []geometry.Label{{Text: "tool", Confidence: 0.9}}},
			{Frame: geometry.Rect{Left: 20, Top: 20, Width: 10, Height: 10}, Labels: []geometry.Label{{Text: "noise", Confidence: 0.1}}},
			{Frame: geometry.Rect{Left: 30, Top: 10, Width: 10, Height: 5}},
		},
	}}
	p, auto, _, creator := newPipeline(t, det)
	p.WithTextRecognizer(stubRecognizer{})

	img := geometry.ReferenceImage{URI: "shelf.jpg", Width: 100, Height: 100}
	parent := "box"
	ids, err := p.Capture(context.Background(), img, CaptureOptions{
		Mode:          ModeObjects,
		Crop:          geometry.CropOptions{ExpansionMultiplier: 1.5},
		Parent:        &parent,
		MinConfidence: 0.5,
	})
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("enqueued %d jobs, want 2", len(ids))
	}

	jobs := auto.Jobs()
	// remapped from 50x50 to 100x100 then expanded by 1.5
	want := geometry.Rect{Left: 8, Top: 8, Width: 15, Height: 15}
	if *jobs[0].Payload.Rect != want {
		t.Fatalf("first rect = %+v, want %+v", *jobs[0].Payload.Rect, want)
	}
	if len(jobs[0].Payload.Labels) != 1 || jobs[0].Payload.Labels[0] != "tool" {
		t.Fatalf("labels = %v", jobs[0].Payload.Labels)
	}
	if jobs[0].Payload.Text != "ACME 12V" {
		t.Fatalf("text = %q", jobs[0].Payload.Text)
	}
	if jobs[1].Payload.Parent == nil || *jobs[1].Payload.Parent != "box" {
		t.Fatalf("parent = %v", jobs[1].Payload.Parent)
	}

	drain(t, auto)
	if len(creator.recs) != 2 || creator.recs[0].Description != "Text: ACME 12V" {
		t.Fatalf("records = %+v", creator.recs)
	}
}

func TestCaptureSubjectsAndWhole(t *testing.T) {
	det := &stubDetector{subjects: detect.SegmentResult{Frames: []geometry.Rect{{Left: 1, Top: 1, Width: 4, Height: 4}}}}
	p, auto, _, _ := newPipeline(t, det)
	img := geometry.ReferenceImage{URI: "desk.jpg", Width: 10, Height: 10}

	ids, err := p.Capture(context.Background(), img, CaptureOptions{Mode: ModeSubjects, Crop: geometry.CropOptions{AsSquare: true}})
	if err != nil || len(ids) != 1 {
		t.Fatalf("Capture subjects = %v, %v", ids, err)
	}
	ids, err = p.Capture(context.Background(), img, CaptureOptions{Mode: ModeWhole})
	if err != nil || len(ids) != 1 {
		t.Fatalf("Capture whole = %v, %v", ids, err)
	}
	jobs := auto.Jobs()
	if jobs[1].Payload.Image.URI != "desk.jpg@0,0,10x10" {
		t.Fatalf("whole crop uri = %q", jobs[1].Payload.Image.URI)
	}

	if _, err := p.Capture(context.Background(), img, CaptureOptions{Mode: "bogus"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestCaptureRegion(t *testing.T) {
	p, _, manual, creator := newPipeline(t, &stubDetector{})
	img := geometry.ReferenceImage{URI: "bench.jpg", Width: 100, Height: 100}

	_, err := p.CaptureRegion(context.Background(), img, geometry.Rect{Left: 10, Top: 10, Width: 20, Height: 10},
		ingest.Fields{Name: "Vise", Description: "Bench vise", Quantity: 1}, geometry.CropOptions{})
	if err != nil {
		t.Fatalf("CaptureRegion returned error: %v", err)
	}
	drain(t, manual)
	if len(creator.recs) != 1 || creator.recs[0].Name != "Vise" || creator.recs[0].ImageBase64 != "b64:bench.jpg@10,10,20x10" {
		t.Fatalf("records = %+v", creator.recs)
	}

	if _, err := p.CaptureRegion(context.Background(), img, geometry.Rect{Width: 0, Height: 1}, ingest.Fields{Name: "x"}, geometry.CropOptions{}); err == nil {
		t.Fatal("expected error for malformed rect")
	}
}

func TestRefineRegion(t *testing.T) {
	det := &stubDetector{objects: geometry.DetectionResult{
		DetectedObjects: []geometry.DetectedObject{{Frame: geometry.Rect{Left: 0, Top: 0, Width: 20, Height: 10}}},
	}}
	p, _, _, _ := newPipeline(t, det)
	img := geometry.ReferenceImage{URI: "wall.jpg", Width: 100, Height: 100}

	got, err := p.RefineRegion(context.Background(), img, geometry.Rect{Left: 30, Top: 40, Width: 20, Height: 10})
	if err != nil {
		t.Fatalf("RefineRegion returned error: %v", err)
	}
	if det.seen[0] != "wall.jpg@30,40,20x10" {
		t.Fatalf("detector saw %q", det.seen[0])
	}
	want := geometry.Rect{Left: 30, Top: 40, Width: 20, Height: 10}
	if got.DetectedObjects[0].Frame != want || got.Width != 20 || got.Height != 10 {
		t.Fatalf("RefineRegion = %+v", got)
	}
}

func TestRefineRegionAtImageEdge(t *testing.T) {
	det := &stubDetector{objects: geometry.DetectionResult{
		DetectedObjects: []geometry.DetectedObject{{Frame: geometry.Rect{Left: 0, Top: 0, Width: 10, Height: 5}}},
	}}
	p, _, _, _ := newPipeline(t, det)
	img := geometry.ReferenceImage{URI: "wall.jpg", Width: 100, Height: 100}

	got, err := p.RefineRegion(context.Background(), img, geometry.Rect{Left: 90, Top: 95, Width: 20, Height: 10})
	if err != nil {
		t.Fatalf("RefineRegion returned error: %v", err)
	}
	if det.seen[0] != "wall.jpg@90,95,10x5" {
		t.Fatalf("detector saw %q", det.seen[0])
	}
	want := geometry.Rect{Left: 90, Top: 95, Width: 10, Height: 5}
	if got.DetectedObjects[0].Frame != want {
		t.Fatalf("frame = %+v, want %+v", got.DetectedObjects[0].Frame, want)
	}
}
