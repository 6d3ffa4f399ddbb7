package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/watzon/healthcheck/internal/checker"
)

// HealthHandlers serves the tool's own liveness and recent run history.
type HealthHandlers struct {
	history *checker.History
	version string
}

func NewHealthHandlers(history *checker.History, version string) *HealthHandlers {
	return &HealthHandlers{
		history: history,
		version: version,
	}
}

type LivenessResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	Timestamp string         `json:"timestamp"`
	LastRun   *checker.Entry `json:"last_run,omitempty"`
}

var startTime = time.Now()

func (h *HealthHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.history != nil {
		if last, ok := h.history.Latest(); ok {
			resp.LastRun = &last
		}
	}

	JSON(w, http.StatusOK, resp)
}

type RunsResponse struct {
	Runs  []checker.Entry `json:"runs"`
	Total int             `json:"total"`
}

// Runs lists recent runs, newest first. Query parameters: failed=true, limit=N.
func (h *HealthHandlers) Runs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		JSON(w, http.StatusOK, RunsResponse{Runs: []checker.Entry{}})
		return
	}

	opts := checker.FilterOptions{}
	if v := r.URL.Query().Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(w, "invalid failed parameter")
			return
		}
		opts.FailedOnly = failed
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			BadRequest(w, "invalid limit parameter")
			return
		}
		opts.Limit = limit
	}

	runs := h.history.List(opts)
	JSON(w, http.StatusOK, RunsResponse{Runs: runs, Total: h.history.Count()})
}
