// Package config loads the engine configuration file. All values have
// working defaults; a missing file is not an error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/polymath-app/polymath/internal/linking"
)

// Ollama locates the embedding/generation provider
type Ollama struct {
	URL             string `yaml:"url"`
	EmbedModel      string `yaml:"embed_model"`
	GenerationModel string `yaml:"generation_model"`
}

// Config is the full engine configuration
type Config struct {
	DataDir string         `yaml:"data_dir"`
	Ollama  Ollama         `yaml:"ollama"`
	Linking linking.Params `yaml:"linking"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		DataDir: "data",
		Ollama: Ollama{
			URL:        "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Linking: linking.DefaultParams(),
	}
}

// Load reads a yaml config file, layering it over the defaults. An empty path
// or absent file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
