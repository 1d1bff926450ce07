package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bdougie/catalog/internal/models"
	"github.com/bdougie/catalog/internal/visualcode"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const uniqueViolation = "23505"

// PostgresConfig holds connection details for PostgreSQL
type PostgresConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ConnString returns URL if set, otherwise builds one from the parts
func (c PostgresConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// Embedder turns record text into a vector
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, error)
	Dimensions() int
}

// PostgresStorage manages interaction with PostgreSQL
type PostgresStorage struct {
	pool     *pgxpool.Pool
	embedder Embedder
	prefix   string
	logger   *slog.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage connection
func NewPostgresStorage(ctx context.Context, config PostgresConfig, embedder Embedder, codePrefix string, logger *slog.Logger) (*PostgresStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{
		pool:     pool,
		embedder: embedder,
		prefix:   codePrefix,
		logger:   logger,
	}, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateRecord inserts a record with a fresh visual code and a description embedding
func (s *PostgresStorage) CreateRecord(ctx context.Context, rec models.NewRecord) (models.Record, error) {
	if strings.TrimSpace(rec.Name) == "" {
		return models.Record{}, fmt.Errorf("record name is required")
	}

	var embedding *pgvector.Vector
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, rec.Name+"\n"+rec.Description)
		if err != nil {
			// store without embedding; similarity search skips the row
			s.logger.Warn("failed to generate embedding", "name", rec.Name, "error", err)
		} else {
			v := pgvector.NewVector(vec)
			embedding = &v
		}
	}

	record := models.Record{
		ID:          uuid.NewString(),
		Name:        rec.Name,
		Description: rec.Description,
		ImageBase64: rec.ImageBase64,
		Quantity:    rec.Quantity,
		ParentID:    rec.Parent,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := visualcode.Generate(s.prefix, "")
		if err != nil {
			return models.Record{}, err
		}

		err = s.pool.QueryRow(ctx,
			`INSERT INTO records
			(id, name, description, image_base64, quantity, parent_id, visual_code, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			RETURNING created_at`,
			record.ID, record.Name, record.Description, record.ImageBase64,
			record.Quantity, record.ParentID, code, embedding).Scan(&record.CreatedAt)

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "records_visual_code_key" {
			s.logger.Debug("visual code collision", "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return models.Record{}, fmt.Errorf("failed to store record: %w", err)
		}

		record.VisualCode = code
		return record, nil
	}

	return models.Record{}, fmt.Errorf("could not allocate a unique visual code after %d attempts", maxCodeAttempts)
}

// FindByVisualCode returns the record printed with code, or nil if there is none
func (s *PostgresStorage) FindByVisualCode(ctx context.Context, code string) (*models.Container, error) {
	// a code that is not well-formed cannot be printed on any container
	c, err := visualcode.Parse(code)
	if err != nil {
		return nil, nil
	}

	var container models.Container
	err = s.pool.QueryRow(ctx,
		"SELECT id, name, visual_code FROM records WHERE visual_code = $1",
		c.String()).Scan(&container.ID, &container.Name, &container.VisualCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up visual code: %w", err)
	}
	return &container, nil
}

// SearchSimilar finds records whose name and description are closest to query
func (s *PostgresStorage) SearchSimilar(ctx context.Context, query string, limit int) ([]models.SimilarRecord, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("similarity search needs an embedder")
	}
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, visual_code,
        1 - (embedding <=> $1) AS similarity
        FROM records
        WHERE embedding IS NOT NULL
        ORDER BY embedding <=> $1
        LIMIT $2`,
		pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar records: %w", err)
	}
	defer rows.Close()

	var results []models.SimilarRecord
	for rows.Next() {
		var r models.SimilarRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.VisualCode, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// InitSchema creates the database schema if it doesn't exist
func InitSchema(ctx context.Context, config PostgresConfig, dimensions int) error {
	conn, err := pgx.Connect(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS records (
            id UUID PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            image_base64 TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL DEFAULT 1,
            parent_id UUID REFERENCES records(id) ON DELETE SET NULL,
            visual_code VARCHAR(16) NOT NULL,
            embedding vector(%d),
            created_at TIMESTAMPTZ NOT NULL,
            CONSTRAINT records_visual_code_key UNIQUE (visual_code)
        );
    `, dimensions))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_records_parent_id ON records(parent_id);
        CREATE INDEX IF NOT EXISTS idx_records_embedding ON records USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}
