package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Timings tracks timing metrics for different stages of the pipeline
type Timings struct {
	mu sync.Mutex

	// Payload retrieval
	FetchTotal time.Duration
	FetchCount int64

	// Validation
	ValidateTotal time.Duration
	ValidateCount int64

	// Operator confirmation (includes wait time at the gate)
	ConfirmTotal time.Duration
	ConfirmCount int64

	// Database load
	LoadTotal time.Duration
	LoadCount int64
}

// NewTimings creates a new Timings instance
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveFetch records a fetch operation duration
func (t *Timings) ObserveFetch(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.FetchTotal += duration
	t.FetchCount++
}

// ObserveValidate records a validation pass duration
func (t *Timings) ObserveValidate(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ValidateTotal += duration
	t.ValidateCount++
}

// ObserveConfirm records a confirmation gate duration
func (t *Timings) ObserveConfirm(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ConfirmTotal += duration
	t.ConfirmCount++
}

// ObserveLoad records a database load duration
func (t *Timings) ObserveLoad(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LoadTotal += duration
	t.LoadCount++
}

// String returns a formatted summary of all timings
func (t *Timings) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result string

	if t.FetchCount > 0 {
		avg := t.FetchTotal / time.Duration(t.FetchCount)
		result += fmt.Sprintf("Fetch: total=%v count=%d avg=%v; ", t.FetchTotal, t.FetchCount, avg)
	}
	if t.ValidateCount > 0 {
		avg := t.ValidateTotal / time.Duration(t.ValidateCount)
		result += fmt.Sprintf("Validate: total=%v count=%d avg=%v; ", t.ValidateTotal, t.ValidateCount, avg)
	}
	if t.ConfirmCount > 0 {
		avg := t.ConfirmTotal / time.Duration(t.ConfirmCount)
		result += fmt.Sprintf("Confirm: total=%v count=%d avg=%v; ", t.ConfirmTotal, t.ConfirmCount, avg)
	}
	if t.LoadCount > 0 {
		avg := t.LoadTotal / time.Duration(t.LoadCount)
		result += fmt.Sprintf("Load: total=%v count=%d avg=%v; ", t.LoadTotal, t.LoadCount, avg)
	}

	if result == "" {
		return "No timings recorded"
	}

	// Remove trailing "; "
	return result[:len(result)-2]
}
