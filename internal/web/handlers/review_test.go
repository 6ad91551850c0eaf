package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leed-ll97/internal/audit"
	"github.com/leed-ll97/internal/logging"
	"github.com/leed-ll97/internal/match"
)

type fakeStore struct {
	run       *audit.Run
	queue     []match.ReviewQueueEntry
	records   map[string]match.MasterRecord
	overrides []audit.Override
	err       error

	gotLimit, gotOffset int
	decidedBy           string
}

func (f *fakeStore) LatestRun(ctx context.Context) (*audit.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.run == nil {
		return nil, audit.ErrNotFound
	}
	return f.run, nil
}

func (f *fakeStore) ReviewQueue(ctx context.Context, runID uuid.UUID, limit, offset int) ([]match.ReviewQueueEntry, int, error) {
	f.gotLimit, f.gotOffset = limit, offset
	if offset >= len(f.queue) {
		return nil, len(f.queue), nil
	}
	end := min(offset+limit, len(f.queue))
	return f.queue[offset:end], len(f.queue), nil
}

func (f *fakeStore) MasterRecord(ctx context.Context, runID uuid.UUID, sourceID string) (*match.MasterRecord, error) {
	rec, ok := f.records[sourceID]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) UpsertOverride(ctx context.Context, o match.ManualOverride, decidedBy string) error {
	if f.err != nil {
		return f.err
	}
	f.decidedBy = decidedBy
	f.overrides = append(f.overrides, audit.Override{ManualOverride: o, DecidedBy: decidedBy})
	return nil
}

func (f *fakeStore) ListOverrides(ctx context.Context) ([]audit.Override, error) {
	return f.overrides, f.err
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		run: &audit.Run{
			ID:         uuid.MustParse("7f1c3a52-3d55-4c1b-9a3e-0c1f2b9d6e11"),
			ReportYear: 2026,
			Stats:      match.Stats{Total: 4, Matched: 3, Unmatched: 1, ReviewQueue: 2},
		},
		queue: []match.ReviewQueueEntry{
			{SourceID: "L2", Method: match.MethodNone},
			{SourceID: "L3", Method: match.MethodFuzzyName, Confidence: 55},
			{SourceID: "L5", Method: match.MethodFuzzyName, Confidence: 60},
		},
		records: map[string]match.MasterRecord{
			"L1": {SourceID: "L1", CandidateID: "N1", Confidence: 100, Method: match.MethodParcelID},
		},
	}
}

func newTestRouter(store Store, overridesEnabled bool) *mux.Router {
	cfg := &Config{}
	cfg.Features.ManualOverrideEnabled = overridesEnabled
	h := &ReviewHandler{Store: store, Config: cfg, Log: logging.Nop}

	r := mux.NewRouter()
	r.HandleFunc("/api/runs/latest", h.LatestRun).Methods("GET")
	r.HandleFunc("/api/review", h.ReviewQueue).Methods("GET")
	r.HandleFunc("/api/records/{source_id}", h.GetRecord).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/api/overrides", h.ListOverrides).Methods("GET")
	r.HandleFunc("/api/overrides", h.PostOverride).Methods("POST")
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReviewQueuePaging(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, true)

	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantOffset int
		wantIDs    []string
	}{
		{"defaults", "/api/review", defaultPageSize, 0, []string{"L2", "L3", "L5"}},
		{"page", "/api/review?limit=2&offset=1", 2, 1, []string{"L3", "L5"}},
		{"clamped", "/api/review?limit=5000&offset=-3", maxPageSize, 0, []string{"L2", "L3", "L5"}},
		{"past end", "/api/review?offset=10", defaultPageSize, 10, []string{}},
		{"garbage", "/api/review?limit=abc", defaultPageSize, 0, []string{"L2", "L3", "L5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, "GET", tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp ReviewResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 3, resp.Total)
			assert.Equal(t, tt.wantLimit, store.gotLimit)
			assert.Equal(t, tt.wantOffset, store.gotOffset)
			assert.Equal(t, store.run.ID.String(), resp.RunID)

			ids := []string{}
			for _, e := range resp.Entries {
				ids = append(ids, e.SourceID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestNoRunIsNotFound(t *testing.T) {
	r := newTestRouter(&fakeStore{}, true)
	for _, target := range []string{"/api/runs/latest", "/api/review", "/api/stats", "/api/records/L1"} {
		rec := do(t, r, "GET", target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	r := newTestRouter(&fakeStore{err: errors.New("connection refused")}, true)
	rec := do(t, r, "GET", "/api/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetRecord(t *testing.T) {
	r := newTestRouter(newFakeStore(), true)

	rec := do(t, r, "GET", "/api/records/L1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m match.MasterRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "N1", m.CandidateID)
	assert.Equal(t, match.MethodParcelID, m.Method)

	rec = do(t, r, "GET", "/api/records/L404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	r := newTestRouter(newFakeStore(), true)
	rec := do(t, r, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2026, resp.ReportYear)
	assert.Equal(t, 3, resp.Stats.Matched)
	assert.InDelta(t, 0.75, resp.MatchRate, 1e-9)
}

func TestPostOverrideValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"match", `{"source_id":"L3","candidate_id":"N7","decision":"match","decided_by":"ana"}`, http.StatusCreated, ""},
		{"reject without candidate", `{"source_id":"L3","decision":"reject"}`, http.StatusCreated, ""},
		{"skip mixed case", `{"source_id":"L3","decision":" Skip "}`, http.StatusCreated, ""},
		{"match without candidate", `{"source_id":"L3","decision":"match"}`, http.StatusBadRequest, "candidate_id is required"},
		{"unknown decision", `{"source_id":"L3","decision":"maybe"}`, http.StatusBadRequest, "decision must be"},
		{"missing source", `{"decision":"reject"}`, http.StatusBadRequest, "source_id is required"},
		{"bad json", `{"source_id":`, http.StatusBadRequest, "Invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			r := newTestRouter(store, true)
			rec := do(t, r, "POST", "/api/overrides", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Contains(t, rec.Body.String(), tt.wantErr)
				assert.Empty(t, store.overrides)
			} else {
				require.Len(t, store.overrides, 1)
			}
		})
	}
}

func TestPostOverrideStoresDecision(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, true)

	rec := do(t, r, "POST", "/api/overrides", `{"source_id":" L3 ","candidate_id":"N7","decision":"MATCH","notes":"same tower"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.overrides, 1)
	got := store.overrides[0]
	assert.Equal(t, "L3", got.SourceID)
	assert.Equal(t, match.OverrideMatch, got.Decision)
	assert.Equal(t, "same tower", got.Notes)
	assert.Equal(t, "web", store.decidedBy)

	rec = do(t, r, "GET", "/api/overrides", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []audit.Override
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "N7", listed[0].CandidateID)
}

func TestPostOverrideDisabled(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(store, false)
	rec := do(t, r, "POST", "/api/overrides", `{"source_id":"L3","decision":"reject"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.overrides)
}
