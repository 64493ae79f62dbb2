package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/parcelmind/regsearch/internal/models"
)

// ManifestFile is the chunk manifest written next to the index artifacts.
// One JSON object per line, in chunk order.
const ManifestFile = "chunks.jsonl"

// WriteManifest writes chunks as JSON lines, replacing any previous manifest.
func WriteManifest(path string, chunks []models.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, chunk := range chunks {
		if err := enc.Encode(chunk); err != nil {
			return fmt.Errorf("encode chunk %s: %w", chunk.ChunkID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a JSON-lines chunk manifest back in file order.
func ReadManifest(path string) ([]models.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var chunks []models.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var chunk models.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return chunks, nil
}
