package run

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is the recorded terminal outcome of one unit.
type Entry struct {
	Unit       Unit      `json:"unit"`
	State      State     `json:"state"`
	Detail     string    `json:"detail,omitempty"` // error class and message, or skip reason
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	Inserted   int       `json:"inserted"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Counts aggregates entries per terminal state.
type Counts struct {
	Succeeded         int `json:"succeeded"`
	PartiallyRejected int `json:"partiallyRejected"`
	Skipped           int `json:"skipped"`
	Failed            int `json:"failed"`
}

// Report collects per-unit outcomes for one pipeline invocation. Appends are
// serialized so unit completions can move onto separate goroutines later
// without changing callers.
type Report struct {
	mu      sync.Mutex
	runID   string
	started time.Time
	entries []Entry
}

// NewReport creates an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{
		runID:   uuid.New().String(),
		started: time.Now(),
	}
}

// RunID identifies this pipeline invocation.
func (r *Report) RunID() string {
	return r.runID
}

// StartedAt is the moment the report (and the run) began.
func (r *Report) StartedAt() time.Time {
	return r.started
}

// Append records a terminal outcome for a unit.
func (r *Report) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of all recorded entries in append order.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Counts tallies entries per terminal state.
func (r *Report) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	var c Counts
	for _, e := range r.entries {
		switch e.State {
		case StateSucceeded:
			c.Succeeded++
		case StatePartiallyRejected:
			c.PartiallyRejected++
		case StateSkippedByOperator:
			c.Skipped++
		case StateFailed:
			c.Failed++
		}
	}
	return c
}
