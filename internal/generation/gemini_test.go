package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text == "" {
			t.Error("prompt missing from request")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "Setbacks are 10 feet. Source: SF_Zoning.pdf, Page 2, Lines 1-12"}}}},
			},
		})
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator(GeminiConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	answer, err := gen.Generate(context.Background(), "What are the setbacks?")
	if err != nil {
		t.Fatal(err)
	}
	if answer == "" {
		t.Error("expected non-empty answer")
	}
}

func TestGeminiGenerator_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	gen, _ := NewGeminiGenerator(GeminiConfig{APIKey: "key", BaseURL: srv.URL})
	if _, err := gen.Generate(context.Background(), "q"); err == nil {
		t.Error("expected error when no candidates returned")
	}
}
