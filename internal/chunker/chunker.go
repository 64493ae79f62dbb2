// Package chunker splits paged regulation text into token-budgeted,
// provenance-tagged chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/parcelmind/regsearch/internal/models"
)

// fragmentSeparator joins fragments (whole pages or paragraphs) into chunk text.
const fragmentSeparator = "\n\n"

// Chunker splits an ordered sequence of pages into bounded, overlapping
// chunks. A chunk never exceeds the token budget except when a single source
// paragraph alone exceeds it; such a paragraph is kept whole, never truncated.
type Chunker struct {
	chunkSize int
	overlap   int
	counter   TokenCounter
}

// New creates a chunker with the given token budget and overlap, both measured
// in counter units.
func New(chunkSize, overlap int, counter TokenCounter) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		counter:   counter,
	}
}

// fragment is a provisional piece of chunk text: a whole page or one paragraph
// of an oversized page, with the page it came from.
type fragment struct {
	text string
	page int
}

// accumulator collects fragments for the chunk currently being assembled.
type accumulator struct {
	fragments []fragment
	tokens    int
}

func (a *accumulator) add(f fragment, tokens int) {
	a.fragments = append(a.fragments, f)
	a.tokens += tokens
}

func (a *accumulator) text() string {
	parts := make([]string, len(a.fragments))
	for i, f := range a.fragments {
		parts[i] = f.text
	}
	return strings.Join(parts, fragmentSeparator)
}

// Chunk splits pages into ordered chunks. Pages must belong to one document;
// city and regulation are taken from the first page. Re-running on identical
// input produces identical chunk IDs.
func (c *Chunker) Chunk(pages []models.Page) []models.Chunk {
	if len(pages) == 0 {
		return nil
	}
	city := pages[0].City
	regulation := pages[0].Regulation

	var (
		chunks []models.Chunk
		acc    accumulator
		seq    int
	)

	emit := func(carryOver int) {
		chunks = append(chunks, c.buildChunk(&acc, seq, city, regulation))
		seq++
		acc = c.seedOverlap(&acc, carryOver)
	}

	for _, page := range pages {
		pageTokens := c.counter.Count(page.Text)
		if pageTokens > c.chunkSize {
			// Oversized page: fold paragraph by paragraph. Keep the last two
			// fragments as overlap since paragraphs are small.
			for _, para := range strings.Split(page.Text, fragmentSeparator) {
				if strings.TrimSpace(para) == "" {
					continue
				}
				paraTokens := c.counter.Count(para)
				if acc.tokens+paraTokens > c.chunkSize && len(acc.fragments) > 0 {
					emit(2)
				}
				acc.add(fragment{text: para, page: page.Page}, paraTokens)
			}
			continue
		}
		if acc.tokens+pageTokens > c.chunkSize && len(acc.fragments) > 0 {
			emit(1)
		}
		acc.add(fragment{text: page.Text, page: page.Page}, pageTokens)
	}

	if len(acc.fragments) > 0 {
		chunks = append(chunks, c.buildChunk(&acc, seq, city, regulation))
	}
	return chunks
}

// buildChunk closes the accumulator into a chunk. Line numbers are relative to
// the chunk's own text: line_start is always 1 and line_end is the number of
// newline-delimited lines in the emitted text.
func (c *Chunker) buildChunk(acc *accumulator, seq int, city, regulation string) models.Chunk {
	text := acc.text()
	return models.Chunk{
		ChunkID:    ChunkID(regulation, seq),
		Text:       text,
		City:       city,
		PageStart:  acc.fragments[0].page,
		PageEnd:    acc.fragments[len(acc.fragments)-1].page,
		LineStart:  1,
		LineEnd:    len(strings.Split(text, "\n")),
		Regulation: regulation,
	}
}

// seedOverlap starts the next accumulator with the last carryOver fragments of
// the just-closed chunk merged into a single fragment, re-counted for tokens.
// Carry-over is by fragment count, not token count.
func (c *Chunker) seedOverlap(acc *accumulator, carryOver int) accumulator {
	if c.overlap <= 0 || len(acc.fragments) == 0 {
		return accumulator{}
	}
	start := len(acc.fragments) - carryOver
	if start < 0 {
		start = 0
	}
	tail := acc.fragments[start:]
	parts := make([]string, len(tail))
	for i, f := range tail {
		parts[i] = f.text
	}
	merged := fragment{
		text: strings.Join(parts, fragmentSeparator),
		page: tail[len(tail)-1].page,
	}
	return accumulator{
		fragments: []fragment{merged},
		tokens:    c.counter.Count(merged.text),
	}
}

// ChunkID returns the stable identifier for the seq-th chunk of a regulation:
// "{regulation}_{seq}", or "chunk_{seq}" when the regulation name is empty.
func ChunkID(regulation string, seq int) string {
	if regulation == "" {
		return fmt.Sprintf("chunk_%d", seq)
	}
	return fmt.Sprintf("%s_%d", regulation, seq)
}
