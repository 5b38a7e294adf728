package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/curio/internal/models"
	"github.com/hyperjump/curio/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))
	response, err := s.engine.Search(r.Context(), &req)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type feedbackRequest struct {
	ImageID  int64   `json:"image_id"`
	Polarity string  `json:"polarity"`
	Weight   float64 `json:"weight,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var polarity int
	switch req.Polarity {
	case "positive":
		polarity = models.PolarityPositive
	case "negative":
		polarity = models.PolarityNegative
	default:
		s.respondError(w, http.StatusBadRequest, "polarity must be \"positive\" or \"negative\"")
		return
	}
	weight := req.Weight
	if weight == 0 {
		weight = 1
	}
	s.logger.Debug("feedback request",
		zap.Int64("image_id", req.ImageID),
		zap.String("polarity", req.Polarity),
		zap.Float64("weight", weight),
	)
	if err := s.engine.Feedback(req.ImageID, polarity, weight); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "recorded",
		"session_id":     s.engine.SessionID(),
		"feedback_count": s.engine.FeedbackCount(),
	})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	id := s.engine.ResetSession()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset", "session_id": id})
}

func (s *Server) handleDatasetReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		s.respondError(w, http.StatusNotImplemented, "dataset reload not configured")
		return
	}
	if err := s.reload(r.Context()); err != nil {
		s.logger.Error("dataset reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "reloaded",
		"images":     s.engine.IndexSize(),
		"session_id": s.engine.SessionID(),
	})
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid image id")
		return
	}
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "catalog not configured")
		return
	}
	rec, err := s.storage.GetRecord(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"images":         s.engine.IndexSize(),
		"dimensions":     s.engine.Dimensions(),
		"session_id":     s.engine.SessionID(),
		"feedback_count": s.engine.FeedbackCount(),
	}
	if s.storage != nil {
		if count, err := s.storage.CountImages(r.Context()); err == nil {
			resp["catalog_images"] = count
		} else {
			s.logger.Error("status: count images failed", zap.Error(err))
		}
	}

	configInfo := map[string]interface{}{
		"index_type":      s.config.Search.IndexType,
		"default_limit":   s.config.Search.DefaultLimit,
		"max_limit":       s.config.Search.MaxLimit,
		"database_path":   s.config.Storage.DatabasePath,
		"embeddings_path": s.config.Dataset.EmbeddingsPath,
		"metadata_path":   s.config.Dataset.MetadataPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.IndexPath,
		s.config.Storage.MetaIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
