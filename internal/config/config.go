// Package config provides configuration loading for the regsearch server
// and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
	Parcel    ParcelConfig    `yaml:"parcel"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig holds the on-disk layout. Dir is the base; the per-stage paths
// default to subdirectories of it when left empty.
type DataConfig struct {
	Dir         string `yaml:"dir"`
	RawDir      string `yaml:"raw_dir"`
	ParsedDir   string `yaml:"parsed_dir"`
	ChunksDir   string `yaml:"chunks_dir"`
	IndexDir    string `yaml:"index_dir"`
	CatalogPath string `yaml:"catalog_path"`
}

// GeminiConfig holds Gemini API settings. The API key is never read from
// YAML; it comes from the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
	BaseURL         string `yaml:"base_url"`
}

// ChunkingConfig holds the token budget settings.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK    int `yaml:"top_k"`
	Workers int `yaml:"workers"`
}

// WatchConfig holds document watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// ParcelConfig holds property lookup endpoints.
type ParcelConfig struct {
	NominatimURL string `yaml:"nominatim_url"`
	ParcelzURL   string `yaml:"parcelz_url"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands relative data paths against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandAll(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
// Data paths are resolved relative to the current directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	expandAll(&cfg, ".")
	return &cfg
}

func expandAll(cfg *Config, baseDir string) {
	cfg.Data.Dir = expandPath(cfg.Data.Dir, baseDir)
	cfg.Data.RawDir = expandPath(cfg.Data.RawDir, baseDir)
	cfg.Data.ParsedDir = expandPath(cfg.Data.ParsedDir, baseDir)
	cfg.Data.ChunksDir = expandPath(cfg.Data.ChunksDir, baseDir)
	cfg.Data.IndexDir = expandPath(cfg.Data.IndexDir, baseDir)
	cfg.Data.CatalogPath = expandPath(cfg.Data.CatalogPath, baseDir)
}

// expandPath converts a path to absolute. Relative paths are resolved
// against baseDir; a leading "~/" maps to the home directory.
func expandPath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, path))
	if err != nil {
		return filepath.Join(baseDir, path)
	}
	return abs
}
