package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/match"
)

// ReviewHandler serves the latest run, its review queue and records, and
// reviewer overrides.
type ReviewHandler struct {
	Store  Store
	Config *Config
	Log    zerolog.Logger
}

// ReviewResponse is one page of the review queue.
type ReviewResponse struct {
	RunID   string                   `json:"run_id"`
	Entries []match.ReviewQueueEntry `json:"entries"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// StatsResponse is the latest run's statistics.
type StatsResponse struct {
	RunID      string      `json:"run_id"`
	ReportYear int         `json:"report_year"`
	Stats      match.Stats `json:"stats"`
	MatchRate  float64     `json:"match_rate"`
}

// OverrideRequest is the body of POST /api/overrides.
type OverrideRequest struct {
	SourceID    string `json:"source_id"`
	CandidateID string `json:"candidate_id"`
	Decision    string `json:"decision"`
	Notes       string `json:"notes"`
	DecidedBy   string `json:"decided_by"`
}

// LatestRun returns the most recent run summary.
func (h *ReviewHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.LatestRun(r.Context())
	if err != nil {
		storeError(w, h.Log, err, "Run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ReviewQueue returns a page of the latest run's review queue.
func (h *ReviewHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseIntParam(query.Get("limit"), defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := parseIntParam(query.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	run, err := h.Store.LatestRun(r.Context())
	if err != nil {
		storeError(w, h.Log, err, "Run")
		return
	}
	entries, total, err := h.Store.ReviewQueue(r.Context(), run.ID, limit, offset)
	if err != nil {
		storeError(w, h.Log, err, "Run")
		return
	}
	if entries == nil {
		entries = []match.ReviewQueueEntry{}
	}
	writeJSON(w, http.StatusOK, ReviewResponse{
		RunID:   run.ID.String(),
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// GetRecord returns one master row of the latest run.
func (h *ReviewHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["source_id"]
	run, err := h.Store.LatestRun(r.Context())
	if err != nil {
		storeError(w, h.Log, err, "Run")
		return
	}
	rec, err := h.Store.MasterRecord(r.Context(), run.ID, sourceID)
	if err != nil {
		storeError(w, h.Log, err, "Record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetStats returns the latest run's statistics.
func (h *ReviewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.LatestRun(r.Context())
	if err != nil {
		storeError(w, h.Log, err, "Run")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		RunID:      run.ID.String(),
		ReportYear: run.ReportYear,
		Stats:      run.Stats,
		MatchRate:  run.Stats.MatchRate(),
	})
}

// ListOverrides returns every stored reviewer decision.
func (h *ReviewHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.Store.ListOverrides(r.Context())
	if err != nil {
		storeError(w, h.Log, err, "Overrides")
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}

// PostOverride validates and stores a reviewer decision. The next matching
// run picks it up when manual mapping is enabled.
func (h *ReviewHandler) PostOverride(w http.ResponseWriter, r *http.Request) {
	if h.Config != nil && !h.Config.Features.ManualOverrideEnabled {
		writeError(w, http.StatusForbidden, "Feature disabled")
		return
	}

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	o, err := req.override()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	decidedBy := strings.TrimSpace(req.DecidedBy)
	if decidedBy == "" {
		decidedBy = "web"
	}

	if err := h.Store.UpsertOverride(r.Context(), o, decidedBy); err != nil {
		storeError(w, h.Log, err, "Override")
		return
	}
	h.Log.Info().Str("source_id", o.SourceID).Str("decision", string(o.Decision)).Str("decided_by", decidedBy).Msg("Override recorded")
	writeJSON(w, http.StatusCreated, o)
}

func (req OverrideRequest) override() (match.ManualOverride, error) {
	o := match.ManualOverride{
		SourceID:    strings.TrimSpace(req.SourceID),
		CandidateID: strings.TrimSpace(req.CandidateID),
		Decision:    match.OverrideDecision(strings.ToLower(strings.TrimSpace(req.Decision))),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if o.SourceID == "" {
		return o, errors.New("source_id is required")
	}
	if !o.Decision.Valid() {
		return o, errors.New("decision must be one of match, reject, skip")
	}
	if o.Decision == match.OverrideMatch && o.CandidateID == "" {
		return o, errors.New("candidate_id is required for match")
	}
	return o, nil
}
