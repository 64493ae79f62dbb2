package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parcelmind/regsearch/internal/embedding"
	"github.com/parcelmind/regsearch/internal/models"
)

func testChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ChunkID:    fmt.Sprintf("reg_%d", i),
			Text:       fmt.Sprintf("chunk text number %d", i),
			City:       "Oakland",
			PageStart:  i + 1,
			PageEnd:    i + 1,
			LineStart:  1,
			LineEnd:    1,
			Regulation: "reg",
		}
	}
	return chunks
}

func TestBuild_OrderPreserved(t *testing.T) {
	chunks := testChunks(20)
	emb := embedding.NewMockEmbedder(8)
	// Several workers so completion order differs from input order.
	idx, report, err := Build(context.Background(), chunks, emb, WithWorkers(5))
	if err != nil {
		t.Fatal(err)
	}
	if report.Embedded != 20 || len(report.Skipped) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if idx.Size() != 20 {
		t.Fatalf("index size = %d", idx.Size())
	}
	for i, m := range idx.Meta {
		if m.ChunkID != chunks[i].ChunkID {
			t.Errorf("metadata position %d has %s, want %s", i, m.ChunkID, chunks[i].ChunkID)
		}
	}
	// Each vector must sit at the same position as its chunk's metadata.
	for i, ch := range chunks {
		vec, err := emb.Embed(context.Background(), ch.Text, embedding.TaskDocument)
		if err != nil {
			t.Fatal(err)
		}
		results, err := idx.Vectors.Search(vec, 1)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Position != i || results[0].Distance != 0 {
			t.Errorf("chunk %d vector found at position %d distance %f", i, results[0].Position, results[0].Distance)
		}
	}
}

func TestBuild_SkipsFailedChunks(t *testing.T) {
	chunks := testChunks(4)
	emb := embedding.NewMockEmbedder(8)
	emb.FailFor = map[string]error{
		chunks[1].Text: errors.New("quota exceeded"),
	}
	idx, report, err := Build(context.Background(), chunks, emb)
	if err != nil {
		t.Fatal(err)
	}
	if report.Embedded != 3 {
		t.Errorf("embedded = %d, want 3", report.Embedded)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].ChunkID != "reg_1" {
		t.Errorf("skipped = %+v", report.Skipped)
	}
	if idx.Size() != 3 {
		t.Errorf("index size = %d, want 3", idx.Size())
	}
	// The failed chunk must not appear in metadata, and order must hold.
	want := []string{"reg_0", "reg_2", "reg_3"}
	for i, m := range idx.Meta {
		if m.ChunkID != want[i] {
			t.Errorf("metadata %d = %s, want %s", i, m.ChunkID, want[i])
		}
	}
}

func TestBuild_AllFailedIsFatal(t *testing.T) {
	chunks := testChunks(2)
	emb := embedding.NewMockEmbedder(8)
	emb.FailFor = map[string]error{
		chunks[0].Text: errors.New("down"),
		chunks[1].Text: errors.New("down"),
	}
	_, _, err := Build(context.Background(), chunks, emb)
	if !errors.Is(err, ErrNoChunksEmbedded) {
		t.Errorf("err = %v, want ErrNoChunksEmbedded", err)
	}
}

func TestBuild_RejectsInvalidChunk(t *testing.T) {
	chunks := testChunks(2)
	chunks[1].Text = ""
	_, _, err := Build(context.Background(), chunks, embedding.NewMockEmbedder(8))
	if err == nil {
		t.Error("expected error for chunk with empty text")
	}
}

func TestArtifacts_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx, _, err := Build(context.Background(), testChunks(5), embedding.NewMockEmbedder(8))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 5 {
		t.Errorf("loaded size = %d, want 5", loaded.Size())
	}
	for i := range loaded.Meta {
		if loaded.Meta[i].ChunkID != idx.Meta[i].ChunkID {
			t.Errorf("metadata %d = %s, want %s", i, loaded.Meta[i].ChunkID, idx.Meta[i].ChunkID)
		}
	}
}

func TestLoadArtifacts_MissingEither(t *testing.T) {
	dir := t.TempDir()
	idx, _, err := Build(context.Background(), testChunks(2), embedding.NewMockEmbedder(8))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	for _, remove := range []string{VectorsFile, MetadataFile} {
		t.Run("missing "+remove, func(t *testing.T) {
			partial := t.TempDir()
			for _, f := range []string{VectorsFile, MetadataFile} {
				if f == remove {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, f))
				if err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(partial, f), data, 0644); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := LoadArtifacts(partial); !errors.Is(err, ErrArtifactMissing) {
				t.Errorf("err = %v, want ErrArtifactMissing", err)
			}
		})
	}
}

func TestLoadArtifacts_Misaligned(t *testing.T) {
	dir := t.TempDir()
	idx, _, err := Build(context.Background(), testChunks(3), embedding.NewMockEmbedder(8))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	// Drop one metadata entry so counts disagree.
	truncated, err := json.Marshal(idx.Meta[:2])
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), truncated, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArtifacts(dir); !errors.Is(err, ErrMisaligned) {
		t.Errorf("err = %v, want ErrMisaligned", err)
	}
}
