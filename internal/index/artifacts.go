package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/vector"
)

// Artifact file names within the index directory. The pair is all-or-nothing:
// retrieval fails fast when either is missing.
const (
	VectorsFile  = "vectors.index"
	MetadataFile = "metadata.json"
)

// Save persists the index as a vector artifact plus an order-aligned metadata
// artifact in dir, creating dir if needed.
func (idx *Index) Save(dir string) error {
	if err := idx.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := idx.Vectors.Save(filepath.Join(dir, VectorsFile)); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	data, err := json.MarshalIndent(idx.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// LoadArtifacts loads the artifact pair from dir. Either file missing is
// ErrArtifactMissing; a count mismatch between the two is ErrMisaligned.
func LoadArtifacts(dir string) (*Index, error) {
	vectorsPath := filepath.Join(dir, VectorsFile)
	metadataPath := filepath.Join(dir, MetadataFile)
	for _, path := range []string{vectorsPath, metadataPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
	}
	vectors, err := vector.Load(vectorsPath)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta []models.Chunk
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	idx := &Index{Vectors: vectors, Meta: meta}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}
