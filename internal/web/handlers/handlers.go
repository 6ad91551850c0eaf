package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leed-ll97/internal/audit"
	"github.com/leed-ll97/internal/match"
)

// Store is the part of audit.Store the review API reads and writes.
type Store interface {
	LatestRun(ctx context.Context) (*audit.Run, error)
	ReviewQueue(ctx context.Context, runID uuid.UUID, limit, offset int) ([]match.ReviewQueueEntry, int, error)
	MasterRecord(ctx context.Context, runID uuid.UUID, sourceID string) (*match.MasterRecord, error)
	UpsertOverride(ctx context.Context, o match.ManualOverride, decidedBy string) error
	ListOverrides(ctx context.Context) ([]audit.Override, error)
}

// Config represents the handler feature switches
type Config struct {
	Features struct {
		ManualOverrideEnabled bool `json:"manual_override_enabled"`
	} `json:"features"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseIntParam parses a string as int with a default value
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultVal
}

// storeError maps store errors to responses. Missing runs and records are
// 404s, everything else is logged and hidden behind a 500.
func storeError(w http.ResponseWriter, log zerolog.Logger, err error, what string) {
	if errors.Is(err, audit.ErrNotFound) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	log.Error().Err(err).Msg("Store request failed")
	writeError(w, http.StatusInternalServerError, "Database error")
}
