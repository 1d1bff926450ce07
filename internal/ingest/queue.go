package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bdougie/catalog/internal/models"
)

var (
	// ErrMissingImage is returned when a payload has no source image
	ErrMissingImage = errors.New("payload missing image data")

	// ErrJobNotFound is returned by Retry for unknown failed job ids
	ErrJobNotFound = errors.New("job not found")

	// ErrClosed is returned when enqueueing on a closed queue
	ErrClosed = errors.New("queue closed")
)

const defaultWakeBuffer = 16

// Fields are the resolved values a record is created from
type Fields struct {
	Name        string
	Description string
	Quantity    int
	Parent      *string
}

// Resolver turns a payload and its encoded image into record fields
type Resolver[P Payload] interface {
	Resolve(ctx context.Context, payload P, imageBase64 string) (Fields, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc[P Payload] func(ctx context.Context, payload P, imageBase64 string) (Fields, error)

// Resolve implements Resolver
func (f ResolverFunc[P]) Resolve(ctx context.Context, payload P, imageBase64 string) (Fields, error) {
	return f(ctx, payload, imageBase64)
}

// RecordCreator persists a new catalog record
type RecordCreator interface {
	CreateRecord(ctx context.Context, rec models.NewRecord) (models.Record, error)
}

// Option configures a Queue
type Option func(*options)

type options struct {
	logger     *slog.Logger
	encoder    ImageEncoder
	wakeBuffer int
}

// WithLogger sets the queue logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEncoder replaces the default file encoder
func WithEncoder(enc ImageEncoder) Option {
	return func(o *options) { o.encoder = enc }
}

// WithWakeBuffer sets the capacity of the worker wake channel
func WithWakeBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.wakeBuffer = n
		}
	}
}

// Queue is an in-memory FIFO of ingestion jobs drained by a single worker.
// Jobs reach a terminal state in enqueue order. A failed job never blocks
// the jobs behind it.
type Queue[P Payload] struct {
	name     string
	resolver Resolver[P]
	creator  RecordCreator
	encoder  ImageEncoder
	logger   *slog.Logger

	mu        sync.Mutex
	fifo      []*Job[P]
	completed []Job[P]
	failed    []Job[P]
	changed   chan struct{}
	busy      bool
	closed    bool

	wake    chan struct{}
	start   sync.Once
	stop    context.CancelFunc
	stopped chan struct{}
}

// New creates a queue; call Start to begin processing
func New[P Payload](name string, resolver Resolver[P], creator RecordCreator, opts ...Option) *Queue[P] {
	o := options{wakeBuffer: defaultWakeBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.encoder == nil {
		o.encoder = FileEncoder{}
	}

	return &Queue[P]{
		name:     name,
		resolver: resolver,
		creator:  creator,
		encoder:  o.encoder,
		logger:   o.logger.With("queue", name),
		changed:  make(chan struct{}),
		wake:     make(chan struct{}, o.wakeBuffer),
		stopped:  make(chan struct{}),
	}
}

// Name returns the queue name
func (q *Queue[P]) Name() string { return q.name }

// Start launches the worker. Subsequent calls are no-ops.
func (q *Queue[P]) Start(ctx context.Context) {
	q.start.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		q.stop = cancel
		go func() {
			defer close(q.stopped)
			q.run(ctx)
		}()
		// pick up anything enqueued before Start
		q.signal()
	})
}

// Close stops the worker after the in-flight job, if any, reaches a terminal state.
// Pending jobs stay in the FIFO; later enqueues return ErrClosed.
func (q *Queue[P]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.start.Do(func() { close(q.stopped) })
	if q.stop != nil {
		q.stop()
	}
	<-q.stopped
}

// Enqueue appends a pending job to the FIFO tail and wakes the worker.
// It never waits for processing.
func (q *Queue[P]) Enqueue(payload P) (string, error) {
	ids, err := q.EnqueueMany([]P{payload})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// EnqueueMany enqueues payloads in order. If any payload lacks an image
// nothing is enqueued.
func (q *Queue[P]) EnqueueMany(payloads []P) ([]string, error) {
	for i, p := range payloads {
		if p.ImageURI() == "" {
			return nil, fmt.Errorf("payload %d: %w", i, ErrMissingImage)
		}
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	now := time.Now()
	ids := make([]string, len(payloads))

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	for i, p := range payloads {
		job := &Job[P]{
			ID:         newJobID(),
			Payload:    p,
			Status:     StatusPending,
			EnqueuedAt: now,
		}
		q.fifo = append(q.fifo, job)
		ids[i] = job.ID
	}
	q.notifyLocked()
	q.mu.Unlock()

	for _, id := range ids {
		q.logger.Debug("job enqueued", "job", id, "status", StatusPending)
	}
	q.signal()
	return ids, nil
}

// Retry removes a failed job from the failed list and enqueues its payload as a new job
func (q *Queue[P]) Retry(id string) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}
	idx := -1
	for i, j := range q.failed {
		if j.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	payload := q.failed[idx].Payload
	q.failed = append(q.failed[:idx:idx], q.failed[idx+1:]...)
	q.notifyLocked()
	q.mu.Unlock()

	return q.Enqueue(payload)
}

// ClearCompleted empties the completed list
func (q *Queue[P]) ClearCompleted() {
	q.mu.Lock()
	q.completed = nil
	q.notifyLocked()
	q.mu.Unlock()
}

// Stats derives the observable counters from the current lists
func (q *Queue[P]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:    len(q.fifo),
		Completed:  len(q.completed),
		Failed:     len(q.failed),
		Processing: q.processingLocked(),
	}
}

// Pending returns the number of jobs in the live FIFO
func (q *Queue[P]) Pending() int { return q.Stats().Pending }

// Failed returns the number of failed jobs retained for inspection
func (q *Queue[P]) Failed() int { return q.Stats().Failed }

// Processing reports whether the worker is draining the FIFO. It stays true
// between one job finishing and the next being picked.
func (q *Queue[P]) Processing() bool { return q.Stats().Processing }

// Jobs returns a snapshot of the live FIFO, head first
func (q *Queue[P]) Jobs() []Job[P] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job[P], len(q.fifo))
	for i, j := range q.fifo {
		out[i] = *j
	}
	return out
}

// Completed returns a snapshot of the completed list
func (q *Queue[P]) Completed() []Job[P] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job[P](nil), q.completed...)
}

// FailedJobs returns a snapshot of the failed list
func (q *Queue[P]) FailedJobs() []Job[P] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job[P](nil), q.failed...)
}

// Changed returns a channel closed on the next state change
func (q *Queue[P]) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// Wait blocks until the FIFO is empty or ctx is done
func (q *Queue[P]) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := len(q.fifo) == 0
		ch := q.changed
		q.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (q *Queue[P]) processingLocked() bool {
	return q.busy && len(q.fifo) > 0
}

func (q *Queue[P]) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// signal wakes the worker without blocking; a full buffer already holds a wake-up
func (q *Queue[P]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run is the single worker: it sleeps on the wake channel and drains the
// FIFO head by head whenever woken
func (q *Queue[P]) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
			q.drain(ctx)
		}
	}
}

func (q *Queue[P]) drain(ctx context.Context) {
	defer q.idle()
	for ctx.Err() == nil {
		id, payload, ok := q.pickHead()
		if !ok {
			return
		}
		// an in-flight job is never cancelled
		rec, err := q.safeProcess(context.WithoutCancel(ctx), payload)
		q.finishHead(id, rec, err)
	}
}

func (q *Queue[P]) idle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.busy {
		q.busy = false
		q.notifyLocked()
	}
}

// safeProcess turns a panic in an external capability into a job failure
func (q *Queue[P]) safeProcess(ctx context.Context, payload P) (rec models.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.process(ctx, payload)
}

// pickHead marks the FIFO head as processing without removing it
func (q *Queue[P]) pickHead() (string, P, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero P
	if len(q.fifo) == 0 {
		return "", zero, false
	}
	head := q.fifo[0]
	head.Status = StatusProcessing
	q.busy = true
	q.notifyLocked()
	q.logger.Debug("job picked", "job", head.ID, "status", StatusProcessing)
	return head.ID, head.Payload, true
}

// finishHead records the terminal state of the head job and pops it
func (q *Queue[P]) finishHead(id string, rec models.Record, err error) {
	q.mu.Lock()
	head := q.fifo[0]
	if head.ID != id {
		// only the worker removes from the FIFO, so this is unreachable
		q.mu.Unlock()
		panic(fmt.Sprintf("ingest: FIFO head %s is not the processed job %s", head.ID, id))
	}

	head.FinishedAt = time.Now()
	if err != nil {
		head.Status = StatusFailed
		head.Error = err.Error()
		q.failed = append(q.failed, *head)
	} else {
		head.Status = StatusCompleted
		head.Record = &rec
		q.completed = append(q.completed, *head)
	}
	q.fifo[0] = nil
	q.fifo = q.fifo[1:]
	q.notifyLocked()
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("job failed", "job", id, "status", StatusFailed, "error", err)
		return
	}
	q.logger.Info("job completed", "job", id, "status", StatusCompleted, "record", rec.ID)
}

func (q *Queue[P]) process(ctx context.Context, payload P) (models.Record, error) {
	uri := payload.ImageURI()
	if uri == "" {
		return models.Record{}, ErrMissingImage
	}

	encoded, err := q.encoder.Encode(ctx, uri)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to read image: %w", err)
	}

	fields, err := q.resolver.Resolve(ctx, payload, encoded)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to resolve fields: %w", err)
	}
	if fields.Quantity <= 0 {
		fields.Quantity = 1
	}

	rec, err := q.creator.CreateRecord(ctx, models.NewRecord{
		Name:        fields.Name,
		Description: fields.Description,
		ImageBase64: encoded,
		Quantity:    fields.Quantity,
		Parent:      fields.Parent,
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to create record: %w", err)
	}
	return rec, nil
}
