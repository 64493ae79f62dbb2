package chunker

import (
	"strings"

	"github.com/parcelmind/regsearch/internal/models"
)

// zoningKeywords are scanned in order; the first keyword found in a chunk's
// text wins. Code patterns come before generic terms so "R-1" beats
// "residential" when both appear.
var zoningKeywords = []string{
	"R-1", "R-2", "R-3", "R-4",
	"C-1", "C-2",
	"M-1", "M-2",
	"residential", "commercial", "mixed-use", "zoning",
}

// ExtractZoning scans text (case-insensitive) for a known zoning keyword and
// returns it uppercased, or "" when none is found. This is an explicitly
// approximate heuristic: it tags the first mention, which may not be the
// zoning the text is actually about.
func ExtractZoning(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range zoningKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return strings.ToUpper(keyword)
		}
	}
	return ""
}

// TagZoning applies the zoning heuristic to chunks in place, leaving chunks
// without a keyword match untagged. It runs after chunk emission so chunk
// boundaries never depend on it.
func TagZoning(chunks []models.Chunk) {
	for i := range chunks {
		if z := ExtractZoning(chunks[i].Text); z != "" {
			chunks[i].Zoning = z
		}
	}
}
