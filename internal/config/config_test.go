package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: mock\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.MinScore != 0.45 || cfg.Retrieval.TopK != 5 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.Embedding.CacheSize != 1000 {
		t.Errorf("cache size default = %d", cfg.Embedding.CacheSize)
	}
	if cfg.Index.Provider != "memory" {
		t.Errorf("index provider default = %q", cfg.Index.Provider)
	}
}

func TestLoadExpandsRelativePaths(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: mock
storage:
  database_path: ./data/registry.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database path not expanded: %q", cfg.Storage.DatabasePath)
	}
	if !strings.HasPrefix(cfg.Storage.DatabasePath, filepath.Dir(path)) {
		t.Errorf("./ path should resolve against config dir: %q", cfg.Storage.DatabasePath)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: quantum\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown embedding provider")
	}
}

func TestLoadRejectsRESTWithoutURL(t *testing.T) {
	path := writeConfig(t, "embedding:\n  provider: rest\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for rest provider without base_url")
	}
}

func TestLoadRejectsOverlapNotSmallerThanSize(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: mock
ingest:
  chunk_size: 100
  chunk_overlap: 100
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for overlap >= chunk size")
	}
}

func TestLoadWatchDirectories(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: mock
watch:
  directories:
    - path: ./drop
      corpus: kb
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("directories = %+v", cfg.Watch.Directories)
	}
	d := cfg.Watch.Directories[0]
	if d.Corpus != "kb" || !filepath.IsAbs(d.Path) {
		t.Errorf("watch directory = %+v", d)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Errorf("recursive should default to true when directories are set")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Embedding.Provider != "mock" {
		t.Errorf("provider lost in round trip: %q", loaded.Embedding.Provider)
	}
}

func TestLoadResolvesAPIKeysFromEnv(t *testing.T) {
	t.Setenv("KOTAE_TEST_INDEX_KEY", "s3cret")
	path := writeConfig(t, `
embedding:
  provider: mock
index:
  provider: remote
  base_url: https://index.example.com
  api_key_env: KOTAE_TEST_INDEX_KEY
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.APIKey != "s3cret" {
		t.Errorf("api key = %q, want value of KOTAE_TEST_INDEX_KEY", cfg.Index.APIKey)
	}
}
