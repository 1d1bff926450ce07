package ingest

import (
	"strings"
	"time"

	"github.com/bdougie/catalog/internal/models"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is completed or failed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payload is anything the queue can ingest; every payload points at a source image
type Payload interface {
	ImageURI() string
}

// Job is one unit of ingestion work
type Job[P Payload] struct {
	ID         string         `json:"id"`
	Payload    P              `json:"payload"`
	Status     Status         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Record     *models.Record `json:"record,omitempty"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
	FinishedAt time.Time      `json:"finishedAt,omitempty"`
}

// Stats is a point-in-time projection of a queue's lists
type Stats struct {
	Pending    int  `json:"pending"`
	Completed  int  `json:"completed"`
	Failed     int  `json:"failed"`
	Processing bool `json:"processing"`
}

// newJobID returns a short display form of a random UUID
func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
