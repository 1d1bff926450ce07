package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CATALOG_STORE", "DATABASE_URL", "PGHOST", "PGPORT", "CATALOG_DATA_DIR",
		"OLLAMA_PORT", "EMBEDDING_DIM", "CROP_EXPANSION", "CROP_SQUARE",
		"CODE_PREFIX", "LOG_LEVEL", "QUEUE_WAKE_BUFFER",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store != StoreFile {
		t.Fatalf("Store = %q, want %q", cfg.Store, StoreFile)
	}
	if cfg.OllamaPort != 11434 || cfg.CodePrefix != "KX" || cfg.EmbeddingDim != 64 {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
	if !cfg.CropSquare || cfg.CropExpansion != 1.2 {
		t.Fatalf("crop defaults mismatch: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.Postgres.ConnString() != "postgres://postgres:@localhost:5432/catalog" {
		t.Fatalf("ConnString = %q", cfg.Postgres.ConnString())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("CODE_PREFIX", "mn")
	t.Setenv("CROP_SQUARE", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_DATA_DIR", "/tmp/catalog")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store != StorePostgres || cfg.Postgres.ConnString() != "postgres://example" {
		t.Fatalf("store config mismatch: %+v", cfg)
	}
	if cfg.CodePrefix != "MN" || cfg.CropSquare || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("overrides mismatch: %+v", cfg)
	}
	if cfg.CropsDir() != filepath.Join("/tmp/catalog", "crops") {
		t.Fatalf("CropsDir = %q", cfg.CropsDir())
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("OLLAMA_PORT")
	t.Cleanup(func() { os.Unsetenv("OLLAMA_PORT") })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OLLAMA_PORT=9999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OllamaPort != 9999 {
		t.Fatalf("OllamaPort = %d, want 9999", cfg.OllamaPort)
	}
}

func TestLoadInvalid(t *testing.T) {
	for key, value := range map[string]string{
		"CATALOG_STORE":  "sqlite",
		"CODE_PREFIX":    "K1",
		"EMBEDDING_DIM":  "-3",
		"CROP_EXPANSION": "0",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
