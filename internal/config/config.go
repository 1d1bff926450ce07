package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bdougie/catalog/internal/storage"
	"github.com/bdougie/catalog/internal/visualcode"
)

const (
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config holds the settings for the catalog tools, loaded from the environment
type Config struct {
	Store    string
	Postgres storage.PostgresConfig
	DataDir  string

	OllamaBaseURL string
	OllamaPort    int
	VisionModel   string

	DetectorURL      string
	OCRURL           string
	InferenceTimeout time.Duration

	EmbeddingDim     int
	EmbeddingWorkers int

	CropExpansion float64
	CropSquare    bool
	CodePrefix    string
	WakeBuffer    int
	LogLevel      slog.Level
}

// Load reads an optional .env file and the process environment
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	home, _ := os.UserHomeDir()
	cfg := &Config{
		Store: strings.ToLower(getEnv("CATALOG_STORE", StoreFile)),
		Postgres: storage.PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("PGHOST", "localhost"),
			Port:     getEnv("PGPORT", "5432"),
			User:     getEnv("PGUSER", "postgres"),
			Password: os.Getenv("PGPASSWORD"),
			DBName:   getEnv("PGDATABASE", "catalog"),
		},
		DataDir:          getEnv("CATALOG_DATA_DIR", filepath.Join(home, ".catalog")),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost"),
		OllamaPort:       getEnvInt("OLLAMA_PORT", 11434),
		VisionModel:      getEnv("VISION_MODEL", "llama3.2-vision:11b"),
		DetectorURL:      os.Getenv("DETECTOR_URL"),
		OCRURL:           os.Getenv("OCR_URL"),
		InferenceTimeout: time.Second * time.Duration(getEnvInt("INFERENCE_TIMEOUT_SECONDS", 60)),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 64),
		EmbeddingWorkers: getEnvInt("EMBEDDING_WORKERS", 4),
		CropExpansion:    getEnvFloat("CROP_EXPANSION", 1.2),
		CropSquare:       getEnvBool("CROP_SQUARE", true),
		CodePrefix:       strings.ToUpper(getEnv("CODE_PREFIX", visualcode.DefaultPrefix)),
		WakeBuffer:       getEnvInt("QUEUE_WAKE_BUFFER", 16),
		LogLevel:         parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres, StoreFile:
	default:
		return fmt.Errorf("CATALOG_STORE must be %q or %q, got %q", StorePostgres, StoreFile, c.Store)
	}
	if c.EmbeddingDim <= 0 || c.EmbeddingWorkers <= 0 || c.WakeBuffer <= 0 {
		return fmt.Errorf("EMBEDDING_DIM, EMBEDDING_WORKERS and QUEUE_WAKE_BUFFER must be positive")
	}
	if c.CropExpansion <= 0 {
		return fmt.Errorf("CROP_EXPANSION must be positive, got %v", c.CropExpansion)
	}
	if _, err := visualcode.Generate(c.CodePrefix, ""); err != nil {
		return fmt.Errorf("CODE_PREFIX %q: %w", c.CodePrefix, err)
	}
	return nil
}

// CropsDir is where cropped regions are written
func (c *Config) CropsDir() string {
	return filepath.Join(c.DataDir, "crops")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
