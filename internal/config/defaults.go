package config

import "path/filepath"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.RawDir == "" {
		cfg.Data.RawDir = filepath.Join(cfg.Data.Dir, "raw")
	}
	if cfg.Data.ParsedDir == "" {
		cfg.Data.ParsedDir = filepath.Join(cfg.Data.Dir, "parsed")
	}
	if cfg.Data.ChunksDir == "" {
		cfg.Data.ChunksDir = filepath.Join(cfg.Data.Dir, "chunks")
	}
	if cfg.Data.IndexDir == "" {
		cfg.Data.IndexDir = filepath.Join(cfg.Data.Dir, "faiss")
	}
	if cfg.Data.CatalogPath == "" {
		cfg.Data.CatalogPath = filepath.Join(cfg.Data.Dir, "catalog.db")
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.Gemini.GenerationModel == "" {
		cfg.Gemini.GenerationModel = "gemini-1.5-flash"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 700
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 8
	}
	if cfg.Retrieval.Workers == 0 {
		cfg.Retrieval.Workers = 4
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 2000
	}
}
