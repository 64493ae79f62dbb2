// Package index builds and persists the vector index with its aligned chunk
// metadata.
package index

import (
	"errors"
	"fmt"

	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/vector"
)

var (
	// ErrNoChunksEmbedded means every chunk failed to embed; a build with zero
	// vectors is fatal.
	ErrNoChunksEmbedded = errors.New("no chunks embedded")
	// ErrArtifactMissing means one of the index/metadata artifact pair is
	// absent. Retrieval never serves from a partial pair.
	ErrArtifactMissing = errors.New("index artifact missing")
	// ErrMisaligned means the vector index and metadata disagree on entry
	// count, which indicates a corrupt artifact.
	ErrMisaligned = errors.New("index and metadata misaligned")
)

// Index pairs a vector index with metadata stored in the same insertion
// order: the vector at position i belongs to Meta[i]. The Index is
// self-contained; answering queries needs no other store. Treated as
// immutable after build.
type Index struct {
	Vectors *vector.FlatIndex
	Meta    []models.Chunk
}

// Validate fails fast when the alignment invariant is broken or a metadata
// record is malformed.
func (idx *Index) Validate() error {
	if idx.Vectors.Size() != len(idx.Meta) {
		return fmt.Errorf("%w: %d vectors, %d metadata entries", ErrMisaligned, idx.Vectors.Size(), len(idx.Meta))
	}
	for i := range idx.Meta {
		if err := idx.Meta[i].Validate(); err != nil {
			return fmt.Errorf("metadata entry %d: %w", i, err)
		}
	}
	return nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	return idx.Vectors.Size()
}
