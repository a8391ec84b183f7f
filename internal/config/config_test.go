package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.DataDir != "data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Ollama.URL != "http://localhost:11434" {
		t.Errorf("ollama url = %q", cfg.Ollama.URL)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("embed model = %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Linking.AutoLinkThreshold != 0.85 {
		t.Errorf("auto-link threshold = %f", cfg.Linking.AutoLinkThreshold)
	}
	if cfg.Linking.SuggestThreshold != 0.55 {
		t.Errorf("suggest threshold = %f", cfg.Linking.SuggestThreshold)
	}
	if cfg.Linking.TopK != 5 {
		t.Errorf("top-k = %d", cfg.Linking.TopK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/polymath.yaml")
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("missing file did not return defaults: %+v", cfg)
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("empty path should not error: %v", err)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("empty path did not return defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "polymath.yaml")
	content := `data_dir: /var/lib/polymath
ollama:
  url: http://ollama.internal:11434
  generation_model: llama3.2
linking:
  auto_link_threshold: 0.9
  top_k: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/polymath" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Ollama.URL != "http://ollama.internal:11434" {
		t.Errorf("ollama url = %q", cfg.Ollama.URL)
	}
	if cfg.Ollama.GenerationModel != "llama3.2" {
		t.Errorf("generation model = %q", cfg.Ollama.GenerationModel)
	}
	if cfg.Linking.AutoLinkThreshold != 0.9 {
		t.Errorf("auto-link threshold = %f", cfg.Linking.AutoLinkThreshold)
	}
	if cfg.Linking.TopK != 3 {
		t.Errorf("top-k = %d", cfg.Linking.TopK)
	}

	// Fields absent from the file keep their defaults
	if cfg.Ollama.EmbedModel != "nomic-embed-text" {
		t.Errorf("embed model lost its default: %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Linking.SuggestThreshold != 0.55 {
		t.Errorf("suggest threshold lost its default: %f", cfg.Linking.SuggestThreshold)
	}
}

func TestLoadMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unterminated"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}
