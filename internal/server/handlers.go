package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/parcelmind/regsearch/internal/evidence"
	"github.com/parcelmind/regsearch/internal/models"
	"github.com/parcelmind/regsearch/internal/retrieve"
)

type queryRequest struct {
	QueryText string `json:"query_text"`
	City      string `json:"city,omitempty"`
	Zoning    string `json:"zoning,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

type queryResponse struct {
	Results       []retrieve.Result `json:"results"`
	Evidence      []evidence.Item   `json:"evidence"`
	FilterRelaxed bool              `json:"filter_relaxed"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ret := s.currentRetriever()
	if ret == nil {
		s.respondError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.QueryText) == "" {
		s.respondError(w, http.StatusBadRequest, "query_text is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.config.Retrieval.TopK
	}
	s.logger.Debug("query request",
		zap.String("query", req.QueryText),
		zap.String("city", req.City),
		zap.String("zoning", req.Zoning),
		zap.Int("top_k", topK))

	resp, err := ret.Retrieve(r.Context(), req.QueryText, retrieve.Filters{City: req.City, Zoning: req.Zoning}, topK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, queryResponse{
		Results:       resp.Results,
		Evidence:      evidence.FromResults(resp.Results),
		FilterRelaxed: resp.FilterRelaxed,
	})
}

type answerRequest struct {
	Address  string `json:"address"`
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type answerResponse struct {
	Property      models.PropertyInfo `json:"property"`
	Answer        string              `json:"answer"`
	Evidence      []evidence.Item     `json:"evidence"`
	FilterRelaxed bool                `json:"filter_relaxed"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ret := s.currentRetriever()
	if ret == nil {
		s.respondError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "address and question are required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.config.Retrieval.TopK
	}

	prop := s.parcel.Lookup(r.Context(), req.Address)
	s.logger.Debug("answer request",
		zap.String("address", req.Address),
		zap.String("city", prop.City),
		zap.String("zoning", prop.Zoning))

	resp, err := ret.Retrieve(r.Context(), req.Question, retrieve.Filters{City: prop.City, Zoning: prop.Zoning}, topK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := s.answerer.Answer(r.Context(), prop, req.Question, resp.Results)
	if err != nil {
		s.logger.Error("answer generation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answerResponse{
		Property:      prop,
		Answer:        result.Answer,
		Evidence:      result.Evidence,
		FilterRelaxed: resp.FilterRelaxed,
	})
}

func (s *Server) handleProperty(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		s.respondError(w, http.StatusBadRequest, "address query parameter is required")
		return
	}
	prop := s.parcel.Lookup(r.Context(), address)
	s.respondJSON(w, http.StatusOK, prop)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.catalog.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.catalog.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	vectorSize := 0
	if ret := s.currentRetriever(); ret != nil {
		vectorSize = ret.Index().Size()
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": vectorSize,
		"config": map[string]interface{}{
			"chunk_size":       s.config.Chunking.ChunkSize,
			"chunk_overlap":    s.config.Chunking.Overlap,
			"top_k":            s.config.Retrieval.TopK,
			"embedding_model":  s.config.Gemini.EmbeddingModel,
			"generation_model": s.config.Gemini.GenerationModel,
			"index_dir":        s.config.Data.IndexDir,
		},
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
