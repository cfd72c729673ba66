package run

import (
	"sync"
	"testing"
	"time"
)

func TestReportCounts(t *testing.T) {
	r := NewReport()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	states := []State{
		StateSucceeded,
		StateSucceeded,
		StatePartiallyRejected,
		StateSkippedByOperator,
		StateFailed,
	}
	for i, s := range states {
		r.Append(Entry{Unit: Unit{GasDay: day, Cycle: i + 1}, State: s})
	}

	c := r.Counts()
	if c.Succeeded != 2 {
		t.Errorf("Expected Succeeded=2, got %d", c.Succeeded)
	}
	if c.PartiallyRejected != 1 {
		t.Errorf("Expected PartiallyRejected=1, got %d", c.PartiallyRejected)
	}
	if c.Skipped != 1 {
		t.Errorf("Expected Skipped=1, got %d", c.Skipped)
	}
	if c.Failed != 1 {
		t.Errorf("Expected Failed=1, got %d", c.Failed)
	}
	if r.Len() != 5 {
		t.Errorf("Expected Len()=5, got %d", r.Len())
	}
}

func TestReportEntriesIsACopy(t *testing.T) {
	r := NewReport()
	r.Append(Entry{State: StateSucceeded})

	entries := r.Entries()
	entries[0].State = StateFailed

	if got := r.Entries()[0].State; got != StateSucceeded {
		t.Errorf("Entries() leaked the internal slice: state changed to %q", got)
	}
}

func TestReportRunID(t *testing.T) {
	a := NewReport()
	b := NewReport()

	if a.RunID() == "" {
		t.Error("Expected a non-empty run ID")
	}
	if a.RunID() == b.RunID() {
		t.Errorf("Expected distinct run IDs, both are %q", a.RunID())
	}
}

// TestReportConcurrentAppend checks that appends from many goroutines are all
// recorded and do not race.
func TestReportConcurrentAppend(t *testing.T) {
	r := NewReport()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(cycle int) {
			defer wg.Done()
			r.Append(Entry{Unit: Unit{Cycle: cycle}, State: StateSucceeded})
		}(i)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Expected 50 entries, got %d", r.Len())
	}
	if c := r.Counts(); c.Succeeded != 50 {
		t.Errorf("Expected Succeeded=50, got %d", c.Succeeded)
	}
}
