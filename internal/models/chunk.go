package models

import "fmt"

// Chunk is a contiguous, bounded span of one or more pages' text, tagged with
// provenance. Created once by the chunker and never mutated afterwards; chunk
// identity persists through indexing and retrieval.
//
// Zoning is populated by a best-effort keyword heuristic and is not guaranteed
// accurate; empty means no tag was found.
//
// LineStart and LineEnd are relative to the chunk's own text, not the source
// document.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	Text       string `json:"text"`
	City       string `json:"city,omitempty"`
	Zoning     string `json:"zoning,omitempty"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Regulation string `json:"regulation,omitempty"`
}

// Validate rejects malformed chunks at the ingestion boundary. A chunk that
// fails validation indicates a corrupt artifact, not a transient condition.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("chunk has empty chunk_id")
	}
	if c.Text == "" {
		return fmt.Errorf("chunk %s has empty text", c.ChunkID)
	}
	if c.PageStart > c.PageEnd {
		return fmt.Errorf("chunk %s has page_start %d > page_end %d", c.ChunkID, c.PageStart, c.PageEnd)
	}
	if c.LineStart > c.LineEnd {
		return fmt.Errorf("chunk %s has line_start %d > line_end %d", c.ChunkID, c.LineStart, c.LineEnd)
	}
	return nil
}
