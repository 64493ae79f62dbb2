package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/parcelmind/regsearch/internal/models"
)

// wordCounter counts whitespace-separated words. Deterministic and cheap, so
// tests can reason about budgets exactly.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// pageOfWords builds a page whose text is n distinct words.
func pageOfWords(pageNum, n int, prefix string) models.Page {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return models.Page{
		Page:       pageNum,
		Text:       strings.Join(words, " "),
		City:       "San Francisco",
		Regulation: "SF_Zoning",
	}
}

func TestChunker_BudgetRespected(t *testing.T) {
	// Fragments are small relative to the budget, so even with the overlap
	// seed carried forward every chunk stays within the budget.
	c := New(50, 10, wordCounter{})
	pages := make([]models.Page, 8)
	for i := range pages {
		pages[i] = pageOfWords(i+1, 15, fmt.Sprintf("p%d", i))
	}
	chunks := c.Chunk(pages)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if got := (wordCounter{}).Count(ch.Text); got > 50 {
			t.Errorf("chunk %s has %d tokens, budget 50", ch.ChunkID, got)
		}
	}
}

func TestChunker_OversizedParagraphKeptWhole(t *testing.T) {
	// One page with a single paragraph of 100 words, budget 20: no blank-line
	// boundary to split on, so the paragraph becomes one over-budget chunk.
	c := New(20, 5, wordCounter{})
	page := pageOfWords(1, 100, "w")
	chunks := c.Chunk([]models.Page{page})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != page.Text {
		t.Error("over-budget paragraph must be kept whole")
	}
}

func TestChunker_OversizedPageSplitsOnParagraphs(t *testing.T) {
	// Page of 4 paragraphs x 30 words, budget 50: paragraphs must be folded
	// one at a time, and every chunk stays within budget.
	paras := make([]string, 4)
	for i := range paras {
		paras[i] = strings.TrimSpace(strings.Repeat(fmt.Sprintf("p%d ", i), 30))
	}
	page := models.Page{Page: 1, Text: strings.Join(paras, "\n\n"), Regulation: "reg"}
	c := New(50, 0, wordCounter{})
	chunks := c.Chunk([]models.Page{page})
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if got := (wordCounter{}).Count(ch.Text); got > 50 {
			t.Errorf("chunk %s has %d tokens, budget 50", ch.ChunkID, got)
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := New(50, 10, wordCounter{})
	pages := []models.Page{
		pageOfWords(1, 40, "a"),
		pageOfWords(2, 40, "b"),
		pageOfWords(3, 40, "c"),
	}
	first := c.Chunk(pages)
	second := c.Chunk(pages)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ChunkID != second[i].ChunkID {
			t.Errorf("chunk %d ID differs: %s vs %s", i, first[i].ChunkID, second[i].ChunkID)
		}
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs", i)
		}
	}
}

func TestChunker_ProvenanceInvariants(t *testing.T) {
	c := New(60, 10, wordCounter{})
	pages := []models.Page{
		pageOfWords(1, 50, "a"),
		pageOfWords(2, 50, "b"),
		pageOfWords(3, 50, "c"),
		pageOfWords(4, 50, "d"),
	}
	for _, ch := range c.Chunk(pages) {
		if err := ch.Validate(); err != nil {
			t.Errorf("chunk invariant violated: %v", err)
		}
		if ch.LineStart != 1 {
			t.Errorf("chunk %s line_start=%d, want 1", ch.ChunkID, ch.LineStart)
		}
		if want := len(strings.Split(ch.Text, "\n")); ch.LineEnd != want {
			t.Errorf("chunk %s line_end=%d, want %d", ch.ChunkID, ch.LineEnd, want)
		}
	}
}

func TestChunker_OverlapScenario(t *testing.T) {
	// 3 pages of 200 tokens each, budget 250, overlap > 0: at least 2 chunks,
	// and chunk 2 must start with the tail (last page) of chunk 1.
	c := New(250, 50, wordCounter{})
	pages := []models.Page{
		pageOfWords(1, 200, "a"),
		pageOfWords(2, 200, "b"),
		pageOfWords(3, 200, "c"),
	}
	chunks := c.Chunk(pages)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	tailFragment := pages[0].Text // chunk 1 closes after page 1; carry-over is its last fragment
	if !strings.HasPrefix(chunks[1].Text, tailFragment) {
		t.Error("chunk 2 must start with the overlap carried from chunk 1")
	}
	if !strings.HasSuffix(chunks[0].Text, tailFragment) {
		t.Error("overlap must match the tail of chunk 1")
	}
}

func TestChunker_NoOverlapWhenZero(t *testing.T) {
	c := New(250, 0, wordCounter{})
	pages := []models.Page{
		pageOfWords(1, 200, "a"),
		pageOfWords(2, 200, "b"),
	}
	chunks := c.Chunk(pages)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.Contains(chunks[1].Text, "a0") {
		t.Error("overlap 0 must not carry text into the next chunk")
	}
}

func TestChunker_ChunkIDs(t *testing.T) {
	c := New(10, 2, wordCounter{})
	pages := []models.Page{
		pageOfWords(1, 8, "a"),
		pageOfWords(2, 8, "b"),
		pageOfWords(3, 8, "c"),
	}
	chunks := c.Chunk(pages)
	for i, ch := range chunks {
		want := fmt.Sprintf("SF_Zoning_%d", i)
		if ch.ChunkID != want {
			t.Errorf("chunk %d ID=%s, want %s", i, ch.ChunkID, want)
		}
	}

	// Without a regulation name the prefix falls back to "chunk".
	anon := []models.Page{{Page: 1, Text: "some text"}}
	got := c.Chunk(anon)
	if len(got) != 1 || got[0].ChunkID != "chunk_0" {
		t.Errorf("anonymous chunk ID=%v", got)
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	c := New(100, 10, wordCounter{})
	if chunks := c.Chunk(nil); chunks != nil {
		t.Errorf("no pages should produce no chunks, got %v", chunks)
	}
}

func TestChunker_PageRange(t *testing.T) {
	// Two small pages fit one chunk; its page range must span both.
	c := New(100, 10, wordCounter{})
	pages := []models.Page{
		pageOfWords(3, 20, "a"),
		pageOfWords(4, 20, "b"),
	}
	chunks := c.Chunk(pages)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageStart != 3 || chunks[0].PageEnd != 4 {
		t.Errorf("page range %d-%d, want 3-4", chunks[0].PageStart, chunks[0].PageEnd)
	}
}
