package chunker

import (
	"testing"

	"github.com/parcelmind/regsearch/internal/models"
)

func TestExtractZoning(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"code match", "Parcels in the R-1 district allow one dwelling unit.", "R-1"},
		{"case insensitive", "the r-2 district permits duplexes", "R-2"},
		{"generic term", "Properties in residential districts must provide parking.", "RESIDENTIAL"},
		{"code wins over generic", "R-3 residential districts", "R-3"},
		{"mixed use", "This parcel is designated mixed-use.", "MIXED-USE"},
		{"no match", "Setback requirements apply to all parcels.", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractZoning(tt.text); got != tt.want {
				t.Errorf("ExtractZoning(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTagZoning(t *testing.T) {
	chunks := []models.Chunk{
		{ChunkID: "a_0", Text: "C-1 commercial corridor rules"},
		{ChunkID: "a_1", Text: "parking minimums"},
	}
	TagZoning(chunks)
	if chunks[0].Zoning != "C-1" {
		t.Errorf("chunk 0 zoning = %q, want C-1", chunks[0].Zoning)
	}
	if chunks[1].Zoning != "" {
		t.Errorf("chunk 1 zoning = %q, want unset", chunks[1].Zoning)
	}
}
