package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9090
storage:
  upload_dir: ./uploads
chat:
  chunk_size: 500
  chunk_overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server: got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Storage.UploadDir != filepath.Join(dir, "uploads") {
		t.Errorf("upload_dir not expanded relative to config dir: %s", cfg.Storage.UploadDir)
	}
	if cfg.Chat.ChunkSize != 500 || cfg.Chat.ChunkOverlap != 100 {
		t.Errorf("chat: got %d/%d", cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Chat.ChunkSize != 1000 || cfg.Chat.ChunkOverlap != 200 {
		t.Errorf("chunking: got %d/%d", cfg.Chat.ChunkSize, cfg.Chat.ChunkOverlap)
	}
	if cfg.Chat.TopK != 4 {
		t.Errorf("top_k: got %d", cfg.Chat.TopK)
	}
	if cfg.Generation.Temperature != 0.1 || cfg.Generation.MaxTokens != 512 {
		t.Errorf("generation: got %v/%d", cfg.Generation.Temperature, cfg.Generation.MaxTokens)
	}
	if cfg.Chat.HistoryLimit != 0 {
		t.Errorf("history_limit should default to 0 (unbounded), got %d", cfg.Chat.HistoryLimit)
	}
}

func TestApplyDefaultsKeepsExplicit(t *testing.T) {
	cfg := Config{}
	cfg.Chat.TopK = 8
	ApplyDefaults(&cfg)
	if cfg.Chat.TopK != 8 {
		t.Errorf("explicit top_k overwritten: got %d", cfg.Chat.TopK)
	}
}
