package embeddings

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbed(t *testing.T) {
	s := NewService(2, 64)
	defer s.Close()

	ctx := context.Background()
	a, err := s.Embed(ctx, "Red metal toolbox")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Fatalf("norm = %v, want 1", norm)
	}

	again, _ := s.Embed(ctx, "Red metal toolbox")
	for i := range a {
		if a[i] != again[i] {
			t.Fatal("embedding is not deterministic")
		}
	}

	similar, _ := s.Embed(ctx, "red toolbox")
	unrelated, _ := s.Embed(ctx, "ceramic coffee mug")
	if cosine(a, similar) <= cosine(a, unrelated) {
		t.Fatalf("similar=%v unrelated=%v", cosine(a, similar), cosine(a, unrelated))
	}
}

func TestEmbedEmpty(t *testing.T) {
	s := NewService(1, 0)
	defer s.Close()

	v, err := s.Embed(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != DefaultDimensions {
		t.Fatalf("len = %d, want %d", len(v), DefaultDimensions)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatal("expected zero vector")
		}
	}
}
