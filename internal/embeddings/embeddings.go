package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// DefaultDimensions is the vector size used when none is configured
const DefaultDimensions = 64

// Result represents the result of embedding generation
type Result struct {
	Content   string
	Embedding []float32
	Error     error
}

// Work represents a unit of embedding work
type Work struct {
	Content string
	Result  chan<- Result
}

// Service manages embedding generation and caching
type Service struct {
	numWorkers int
	dimensions int
	workQueue  chan Work
	cache      sync.Map // Thread-safe map for caching embeddings
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewService creates a new embedding service with the specified number of workers
func NewService(numWorkers, dimensions int) *Service {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	service := &Service{
		numWorkers: numWorkers,
		dimensions: dimensions,
		workQueue:  make(chan Work, 100),
	}
	service.startWorkers()

	return service
}

// Dimensions returns the vector size the service produces
func (s *Service) Dimensions() int { return s.dimensions }

// startWorkers starts a pool of goroutines for generating embeddings
func (s *Service) startWorkers() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for work := range s.workQueue {
				if cached, ok := s.cache.Load(work.Content); ok {
					work.Result <- Result{Content: work.Content, Embedding: cached.([]float32)}
					continue
				}

				embedding := s.generateEmbedding(work.Content)
				s.cache.Store(work.Content, embedding)
				work.Result <- Result{Content: work.Content, Embedding: embedding}
			}
		}()
	}
}

// GetEmbedding requests an embedding generation asynchronously
func (s *Service) GetEmbedding(content string) <-chan Result {
	resultChan := make(chan Result, 1)

	select {
	case s.workQueue <- Work{Content: content, Result: resultChan}:
	default:
		resultChan <- Result{
			Content: content,
			Error:   fmt.Errorf("embedding queue is full, try again later"),
		}
	}

	return resultChan
}

// Embed generates an embedding and waits for the result
func (s *Service) Embed(ctx context.Context, content string) ([]float32, error) {
	select {
	case res := <-s.GetEmbedding(content):
		return res.Embedding, res.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// generateEmbedding hashes lowercase word tokens and character trigrams into
// a fixed-size L2-normalized vector
func (s *Service) generateEmbedding(content string) []float32 {
	vec := make([]float32, s.dimensions)
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	add := func(token string, weight float32) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % uint32(s.dimensions))
		if sum&(1<<31) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for _, w := range words {
		add(w, 1)
		padded := "#" + w + "#"
		for i := 0; i+3 <= len(padded); i++ {
			add(padded[i:i+3], 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// Close shuts down the embedding service and waits for all workers to finish
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.workQueue)
	})
	s.wg.Wait()
}
