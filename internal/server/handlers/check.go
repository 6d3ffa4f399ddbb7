package handlers

import (
	"net/http"

	"github.com/watzon/healthcheck/internal/checker"
	"github.com/watzon/healthcheck/internal/targets"
)

// CheckHandler runs the plan on every request and responds with the aggregate
// document. The response status is always 200; the document carries the state.
type CheckHandler struct {
	checker *checker.Checker
	plan    targets.Plan
	format  map[string]any
	history *checker.History
}

func NewCheckHandler(c *checker.Checker, plan targets.Plan, format map[string]any, history *checker.History) *CheckHandler {
	return &CheckHandler{checker: c, plan: plan, format: format, history: history}
}

func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		MethodNotAllowed(w)
		return
	}

	report := h.checker.Run(r.Context(), h.plan)
	if h.history != nil {
		h.history.Add(checker.NewEntry(report))
	}
	JSON(w, http.StatusOK, report.Document(h.format))
}
