// Package retrieve serves top-K similarity queries over the built index with
// optional city/zoning filtering and an unfiltered fallback.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/index"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/vector"
)

// overFetchFactor bounds how many candidates a filtered search examines.
// Filtering is applied after the vector search, so recall under a restrictive
// filter is probabilistic, not exhaustive.
const overFetchFactor = 3

// Filters restricts results by metadata. Empty or whitespace-only strings
// mean "no filter". City comparison is normalized so equivalent spellings
// match; zoning is an exact string match.
type Filters struct {
	City   string
	Zoning string
}

func (f Filters) empty() bool {
	return strings.TrimSpace(f.City) == "" && strings.TrimSpace(f.Zoning) == ""
}

// Result is one retrieval hit: a copy of the chunk's metadata and text plus
// its raw distance and bounded similarity score. Results hold copies, not
// references, so they outlive the index safely.
type Result struct {
	Chunk      models.Chunk `json:"chunk"`
	Distance   float64      `json:"distance"`
	Similarity float64      `json:"similarity"`
}

// Response carries the ranked results and whether the filter had to be
// relaxed. When FilterRelaxed is true the results did NOT satisfy the
// requested filter; callers needing strict filtering must check it.
type Response struct {
	Results       []Result `json:"results"`
	FilterRelaxed bool     `json:"filter_relaxed"`
}

// Retriever answers queries against one built index.
type Retriever struct {
	idx      *index.Index
	embedder embedding.Embedder
	logger   *zap.Logger
}

// New creates a retriever. logger may be nil.
func New(idx *index.Index, embedder embedding.Embedder, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{idx: idx, embedder: embedder, logger: logger}
}

// Index exposes the retriever's index (for status reporting).
func (r *Retriever) Index() *index.Index {
	return r.idx
}

// Retrieve embeds the query text and returns the top-K chunks. A failed query
// embedding is fatal for this query and surfaced, never converted to an empty
// result.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, f Filters, topK int) (*Response, error) {
	queryVec, err := r.embedder.Embed(ctx, queryText, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return r.RetrieveVector(queryVec, f, topK)
}

// RetrieveVector returns the top-K chunks for a pre-computed query vector,
// best similarity first.
func (r *Retriever) RetrieveVector(queryVec []float32, f Filters, topK int) (*Response, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if f.empty() {
		hits, err := r.idx.Vectors.Search(queryVec, min(topK, r.idx.Size()))
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		return &Response{Results: r.toResults(hits)}, nil
	}

	// Filters present: over-fetch, then filter in similarity order.
	k := min(topK*overFetchFactor, r.idx.Size())
	hits, err := r.idx.Vectors.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	cityNorm := normalizeCity(f.City)
	zoning := strings.TrimSpace(f.Zoning)
	var kept []Result
	for _, hit := range hits {
		meta := r.idx.Meta[hit.Position]
		if cityNorm != "" && (meta.City == "" || normalizeCity(meta.City) != cityNorm) {
			continue
		}
		if zoning != "" && meta.Zoning != zoning {
			continue
		}
		kept = append(kept, r.toResult(hit.Position, hit.Distance))
		if len(kept) >= topK {
			break
		}
	}
	if len(kept) > 0 {
		return &Response{Results: kept}, nil
	}

	// Fallback: the filter matched nothing. As long as the index is
	// non-empty, return unfiltered results and signal the relaxation rather
	// than returning empty.
	if r.idx.Size() == 0 {
		return &Response{}, nil
	}
	r.logger.Warn("no chunks matched filters; returning unfiltered results",
		zap.String("city", f.City),
		zap.String("zoning", f.Zoning),
		zap.Int("top_k", topK),
	)
	hits, err = r.idx.Vectors.Search(queryVec, min(topK, r.idx.Size()))
	if err != nil {
		return nil, fmt.Errorf("fallback vector search: %w", err)
	}
	return &Response{Results: r.toResults(hits), FilterRelaxed: true}, nil
}

func (r *Retriever) toResults(hits []vector.Result) []Result {
	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = r.toResult(hit.Position, hit.Distance)
	}
	return results
}

func (r *Retriever) toResult(position int, distance float64) Result {
	return Result{
		Chunk:      r.idx.Meta[position],
		Distance:   distance,
		Similarity: Similarity(distance),
	}
}

// Similarity maps a raw distance into (0, 1], higher is better, strictly
// decreasing in distance and exactly 1 only at zero distance.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

// normalizeCity lowercases and collapses internal whitespace to single
// underscores so "San Francisco" and "san_francisco" compare equal. Returns
// "" for empty or whitespace-only input.
func normalizeCity(s string) string {
	fields := strings.Fields(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
	return strings.Join(fields, "_")
}
