// Package evidence maps retrieval results into citation-ready evidence items.
package evidence

import (
	"strings"

	"github.com/parcelmind/regsearch/internal/retrieve"
)

// ExcerptLimit bounds the evidence text excerpt, in runes. Truncation is a
// display concern only; the stored chunk text is never altered.
const ExcerptLimit = 500

// sourceSuffix is the normalized file suffix for regulation source names.
const sourceSuffix = ".pdf"

// unknownSource is used when a chunk carries no regulation name.
const unknownSource = "Unknown"

// Item is one citation: where a chunk's text originated plus a bounded
// excerpt for display.
type Item struct {
	SourceFile string `json:"source_file"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
	Text       string `json:"text"`
	ChunkID    string `json:"chunk_id"`
}

// FromResults maps retrieval results 1:1, in order, into evidence items.
// Empty input yields an empty list, never an error.
func FromResults(results []retrieve.Result) []Item {
	items := make([]Item, 0, len(results))
	for _, res := range results {
		items = append(items, Item{
			SourceFile: SourceFile(res.Chunk.Regulation),
			PageStart:  res.Chunk.PageStart,
			PageEnd:    res.Chunk.PageEnd,
			LineStart:  res.Chunk.LineStart,
			LineEnd:    res.Chunk.LineEnd,
			Text:       excerpt(res.Chunk.Text),
			ChunkID:    res.Chunk.ChunkID,
		})
	}
	return items
}

// SourceFile returns the regulation name with the file suffix appended only
// when not already present (case-insensitive).
func SourceFile(regulation string) string {
	if regulation == "" {
		return unknownSource
	}
	if strings.HasSuffix(strings.ToLower(regulation), sourceSuffix) {
		return regulation
	}
	return regulation + sourceSuffix
}

// excerpt truncates text to ExcerptLimit runes.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptLimit {
		return text
	}
	return string(runes[:ExcerptLimit])
}
