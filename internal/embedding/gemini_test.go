package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiEmbedder_Embed(t *testing.T) {
	var gotTask Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotTask = req.TaskType
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": []float64{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	emb, err := NewGeminiEmbedder(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := emb.Embed(context.Background(), "setback requirements", TaskQuery)
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d, want 3", len(vec))
	}
	if gotTask != TaskQuery {
		t.Errorf("task = %s, want %s", gotTask, TaskQuery)
	}
}

func TestGeminiEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"invalid key"}}`))
	}))
	defer srv.Close()

	emb, _ := NewGeminiEmbedder(GeminiConfig{APIKey: "bad", BaseURL: srv.URL})
	if _, err := emb.Embed(context.Background(), "text", TaskDocument); err == nil {
		t.Error("expected error from API failure")
	}
}

func TestGeminiEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewGeminiEmbedder(GeminiConfig{}); err == nil {
		t.Error("expected error when API key missing")
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder(8)
	a, err := m.Embed(context.Background(), "same text", TaskDocument)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Embed(context.Background(), "same text", TaskQuery)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("mock embedder must be deterministic across task types")
		}
	}
}
