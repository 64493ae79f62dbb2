package index

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/vector"
)

const defaultWorkers = 4

// SkippedChunk records a chunk that failed to embed and was left out of the
// index. A partial index is valid; skipped chunks are reported, not fatal.
type SkippedChunk struct {
	ChunkID string
	Err     error
}

// BuildReport summarizes a build: how many chunks embedded, which were
// skipped and why.
type BuildReport struct {
	Embedded int
	Skipped  []SkippedChunk
}

// BuildOption configures a build.
type BuildOption func(*builder)

// WithWorkers sets the number of concurrent in-flight embedding calls.
func WithWorkers(n int) BuildOption {
	return func(b *builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger sets a logger for per-chunk progress and skip warnings.
func WithLogger(l *zap.Logger) BuildOption {
	return func(b *builder) { b.logger = l }
}

type builder struct {
	workers int
	logger  *zap.Logger
}

// Build embeds every chunk once through a bounded worker pool and assembles
// the index. Embedding calls run concurrently but the persisted order always
// matches the input chunk order. Per-chunk failures are skipped and reported;
// the build fails only when zero chunks embed.
func Build(ctx context.Context, chunks []models.Chunk, embedder embedding.Embedder, opts ...BuildOption) (*Index, *BuildReport, error) {
	b := &builder{workers: defaultWorkers}
	for _, opt := range opts {
		opt(b)
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid chunk: %w", err)
		}
	}

	type slot struct {
		vec []float32
		err error
	}
	slots := make([]slot, len(chunks))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				vec, err := embedder.Embed(ctx, chunks[i].Text, embedding.TaskDocument)
				slots[i] = slot{vec: vec, err: err}
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := &BuildReport{}
	var (
		vectors [][]float32
		meta    []models.Chunk
		dims    int
	)
	for i := range chunks {
		if slots[i].err != nil {
			report.Skipped = append(report.Skipped, SkippedChunk{ChunkID: chunks[i].ChunkID, Err: slots[i].err})
			if b.logger != nil {
				b.logger.Warn("chunk skipped: embedding failed",
					zap.String("chunk_id", chunks[i].ChunkID),
					zap.Error(slots[i].err),
				)
			}
			continue
		}
		// The dimension is fixed by the first successful embedding. A later
		// mismatch means the collaborator is inconsistent, not a per-item
		// transient, so it fails the build.
		if dims == 0 {
			dims = len(slots[i].vec)
		} else if len(slots[i].vec) != dims {
			return nil, nil, fmt.Errorf("chunk %s embedding dimension %d, index dimension %d",
				chunks[i].ChunkID, len(slots[i].vec), dims)
		}
		vectors = append(vectors, slots[i].vec)
		meta = append(meta, chunks[i])
	}
	if len(vectors) == 0 {
		return nil, nil, fmt.Errorf("%w: %d chunks attempted", ErrNoChunksEmbedded, len(chunks))
	}
	report.Embedded = len(vectors)

	flat, err := vector.NewFlatIndex(dims)
	if err != nil {
		return nil, nil, err
	}
	if err := flat.Add(vectors); err != nil {
		return nil, nil, fmt.Errorf("add vectors: %w", err)
	}
	idx := &Index{Vectors: flat, Meta: meta}
	if b.logger != nil {
		b.logger.Info("index built",
			zap.Int("embedded", report.Embedded),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("dimensions", dims),
		)
	}
	return idx, report, nil
}
