package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bdougie/catalog/internal/models"
	"github.com/bdougie/catalog/internal/visualcode"
	"github.com/google/uuid"
)

const (
	recordsFileName = "records.json"
	maxCodeAttempts = 8
)

// Storage defines the record-creation and container-lookup capabilities
type Storage interface {
	// CreateRecord persists a record and assigns it an id and visual code
	CreateRecord(ctx context.Context, rec models.NewRecord) (models.Record, error)

	// FindByVisualCode returns the container printed with code, or nil if none.
	// Malformed codes match nothing.
	FindByVisualCode(ctx context.Context, code string) (*models.Container, error)

	// Close releases the underlying resources
	Close()
}

// FileStorage keeps records in a JSON file
type FileStorage struct {
	mu      sync.Mutex
	dir     string
	prefix  string
	records []models.Record
	byCode  map[string]int
}

// NewFileStorage opens (or creates) the records file in dir
func NewFileStorage(dir, codePrefix string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", dir, err)
	}
	s := &FileStorage{
		dir:    dir,
		prefix: codePrefix,
		byCode: make(map[string]int),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) path() string {
	return filepath.Join(s.dir, recordsFileName)
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read records file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return fmt.Errorf("failed to unmarshal records: %w", err)
	}
	for i, r := range s.records {
		s.byCode[r.VisualCode] = i
	}
	return nil
}

// CreateRecord implements Storage
func (s *FileStorage) CreateRecord(ctx context.Context, rec models.NewRecord) (models.Record, error) {
	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}
	if strings.TrimSpace(rec.Name) == "" {
		return models.Record{}, fmt.Errorf("record name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Parent != nil && s.indexOf(*rec.Parent) < 0 {
		return models.Record{}, fmt.Errorf("parent record %s does not exist", *rec.Parent)
	}

	code, err := s.uniqueCode()
	if err != nil {
		return models.Record{}, err
	}

	record := models.Record{
		ID:          uuid.NewString(),
		Name:        rec.Name,
		Description: rec.Description,
		ImageBase64: rec.ImageBase64,
		Quantity:    rec.Quantity,
		ParentID:    rec.Parent,
		VisualCode:  code,
		CreatedAt:   time.Now().UTC(),
	}

	s.records = append(s.records, record)
	s.byCode[code] = len(s.records) - 1
	if err := s.flush(); err != nil {
		s.records = s.records[:len(s.records)-1]
		delete(s.byCode, code)
		return models.Record{}, err
	}
	return record, nil
}

// FindByVisualCode implements Storage
func (s *FileStorage) FindByVisualCode(ctx context.Context, code string) (*models.Container, error) {
	// a code that is not well-formed cannot be printed on any container
	c, err := visualcode.Parse(code)
	if err != nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byCode[c.String()]
	if !ok {
		return nil, nil
	}
	container := s.records[idx].AsContainer()
	return &container, nil
}

// Records returns a copy of all stored records
func (s *FileStorage) Records() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Record(nil), s.records...)
}

// Close implements Storage
func (s *FileStorage) Close() {}

func (s *FileStorage) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStorage) uniqueCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := visualcode.Generate(s.prefix, "")
		if err != nil {
			return "", err
		}
		if _, taken := s.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique visual code after %d attempts", maxCodeAttempts)
}

// flush writes all records to disk through a temp file
func (s *FileStorage) flush() error {
	tmp, err := os.CreateTemp(s.dir, recordsFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp records file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(s.records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path())
}
