package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/trisearch/internal/models"
	"github.com/hyperjump/trisearch/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("query", query.Query),
		zap.Int("limit", query.Limit),
	)
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.String("query", query.Query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := s.storage.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			s.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Error("get product failed", zap.Int64("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: count index rows failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"products":     stats.Products,
		"tags":         stats.Tags,
		"associations": stats.Associations,
	}
	if cacheStats, ok := s.engine.CacheStats(); ok {
		resp["tag_cache"] = cacheStats
	}

	configInfo := map[string]interface{}{
		"strategy": s.engine.Strategy(),
	}
	if s.appConfig != nil {
		configInfo["backend"] = s.appConfig.Storage.Backend
		configInfo["database_path"] = s.appConfig.Storage.DatabasePath
		configInfo["read_only"] = s.appConfig.Storage.ReadOnly
		configInfo["default_limit"] = s.appConfig.Search.DefaultLimit
		configInfo["max_limit"] = s.appConfig.Search.MaxLimit
		configInfo["cache_size"] = s.appConfig.Search.CacheSize
		configInfo["watch_enabled"] = s.appConfig.Watch.EnabledOrDefault()

		diskBytes, err := storage.DiskUsageBytes(storage.DatabaseFiles(s.appConfig.Storage.DatabasePath)...)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
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
