package checker

import (
	"sync"
	"time"
)

// Entry summarizes one completed run.
type Entry struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS float64   `json:"duration_ms"`
	Total      int       `json:"total"`
	Failures   int       `json:"failures"`
	Failed     []string  `json:"failed,omitempty"`
}

// NewEntry summarizes report.
func NewEntry(report *Report) Entry {
	entry := Entry{
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		Timestamp:  report.StartedAt,
		DurationMS: float64(report.Duration.Microseconds()) / 1000.0,
		Total:      len(report.Checks),
	}
	for _, c := range report.Checks {
		if !c.OK {
			entry.Failures++
			entry.Failed = append(entry.Failed, c.Target.Function)
		}
	}
	return entry
}

// History is a thread-safe ring buffer of recent runs.
type History struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	head     int
	count    int
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Add records a run.
func (h *History) Add(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = entry
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// FilterOptions selects history entries.
type FilterOptions struct {
	FailedOnly bool
	Since      time.Time
	Limit      int
}

// List returns entries newest first.
func (h *History) List(opts FilterOptions) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if opts.Limit <= 0 || opts.Limit > h.capacity {
		opts.Limit = h.capacity
	}

	out := make([]Entry, 0, min(opts.Limit, h.count))
	for i := 0; i < h.count && len(out) < opts.Limit; i++ {
		entry := h.entries[(h.head-1-i+h.capacity)%h.capacity]
		if opts.FailedOnly && entry.Failures == 0 {
			continue
		}
		if !opts.Since.IsZero() && entry.Timestamp.Before(opts.Since) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Latest returns the most recent entry.
func (h *History) Latest() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Entry{}, false
	}
	return h.entries[(h.head-1+h.capacity)%h.capacity], true
}

// Count returns the number of stored entries.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
