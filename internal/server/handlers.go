package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trendpulse/internal/core"
	"trendpulse/internal/pipeline"
)

// API envelope. Every endpoint answers {success, ...} so clients can branch
// without inspecting status codes.
type apiResponse struct {
	Success bool        `json:"success"`
	AIMode  string      `json:"aiMode,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// scanRequest is the POST /api/scan body. All fields are optional.
type scanRequest struct {
	AIMode  string `json:"ai_mode" validate:"omitempty,oneof=enabled disabled"`
	Force   bool   `json:"force"`
	Keyword string `json:"keyword" validate:"omitempty,max=64"`
}

// scanResponse summarizes a completed run alongside the full report.
type scanResponse struct {
	RunID         string             `json:"run_id"`
	ItemCount     int                `json:"item_count"`
	LLMCalls      int                `json:"llm_calls"`
	QuotaExceeded bool               `json:"quota_exceeded"`
	Cached        bool               `json:"cached"`
	Report        *core.TrendsReport `json:"report"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Schedule  string `json:"schedule"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Schedule:  s.schedule,
	})
}

// handleScan handles POST /api/scan. An empty body runs with defaults.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	opts := pipeline.Options{
		ForceRefresh: req.Force,
		Keyword:      strings.TrimSpace(req.Keyword),
	}
	aiMode := "default"
	switch req.AIMode {
	case "enabled":
		enabled := true
		opts.EnableReasoning = &enabled
		aiMode = "enabled"
	case "disabled":
		disabled := false
		opts.EnableReasoning = &disabled
		aiMode = "disabled"
	}

	result, err := s.scanner.Scan(r.Context(), opts)
	if err != nil {
		s.log.Error().Err(err).Msg("manual scan failed")
		s.respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	s.respondJSON(w, http.StatusOK, apiResponse{
		Success: true,
		AIMode:  aiMode,
		Data: scanResponse{
			RunID:         result.RunID,
			ItemCount:     result.ItemCount,
			LLMCalls:      result.LLMCalls,
			QuotaExceeded: result.QuotaExceeded,
			Cached:        result.Cached,
			Report:        result.Report,
		},
	})
}

// handleLatestReport handles GET /api/reports/latest.
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetLatestReport(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read latest report")
		s.respondError(w, http.StatusInternalServerError, "failed to read latest report")
		return
	}
	if report == nil {
		s.respondError(w, http.StatusNotFound, "no report available yet")
		return
	}
	s.respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: report})
}

// handleHistory handles GET /api/reports/history?limit=N. The store clamps
// the limit into its retention window.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 7
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	history, err := s.store.GetHistory(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read history")
		s.respondError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: history})
}

// aliasRequest is a single rule in the PUT /api/aliases body.
type aliasRequest struct {
	Alias     string `json:"alias" validate:"required,max=64"`
	Canonical string `json:"canonical" validate:"required,max=64"`
}

// handleGetAliases handles GET /api/aliases.
func (s *Server) handleGetAliases(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.GetAliases(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read aliases")
		s.respondError(w, http.StatusInternalServerError, "failed to read aliases")
		return
	}
	s.respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: rules})
}

// handlePutAliases handles PUT /api/aliases. The body replaces the whole
// alias table.
func (s *Server) handlePutAliases(w http.ResponseWriter, r *http.Request) {
	var body []aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, rule := range body {
		if err := s.validate.Struct(rule); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid alias rule: "+err.Error())
			return
		}
	}

	rules := make([]core.AliasRule, 0, len(body))
	for _, rule := range body {
		rules = append(rules, core.AliasRule{
			Alias:     strings.TrimSpace(rule.Alias),
			Canonical: strings.TrimSpace(rule.Canonical),
		})
	}
	if err := s.store.PutAliases(r.Context(), rules); err != nil {
		s.log.Error().Err(err).Msg("failed to write aliases")
		s.respondError(w, http.StatusInternalServerError, "failed to write aliases")
		return
	}
	s.respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: rules})
}

// handleKeywords handles GET /api/keywords.
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.store.GetKeywordBundle(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read keyword bundle")
		s.respondError(w, http.StatusInternalServerError, "failed to read keyword bundle")
		return
	}
	if bundle == nil {
		s.respondError(w, http.StatusNotFound, "no keyword bundle available yet")
		return
	}
	s.respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: bundle})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// respondError writes an error envelope.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, apiResponse{Success: false, Error: message})
}
