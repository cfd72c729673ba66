package confirm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/OlsenJo/data-extract-app/internal/ingest"
	"github.com/OlsenJo/data-extract-app/internal/run"
)

var confirmUnit = run.Unit{GasDay: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Cycle: 2}

func testSummary() ingest.BatchSummary {
	return ingest.BatchSummary{Unit: confirmUnit, Accepted: 5}
}

func TestInteractiveDecisions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Decision
	}{
		{"lowercase y", "y\n", Accepted},
		{"uppercase yes", "YES\n", Accepted},
		{"padded yes", "  yes  \n", Accepted},
		{"explicit no", "n\n", Rejected},
		{"empty line defaults to no", "\n", Rejected},
		{"anything else is no", "sure\n", Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			g := NewInteractive(strings.NewReader(tt.input), &out, 0)

			got, err := g.Confirm(context.Background(), testSummary())
			if err != nil {
				t.Fatalf("Confirm() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInteractivePromptShowsSummary(t *testing.T) {
	var out bytes.Buffer
	g := NewInteractive(strings.NewReader("y\n"), &out, 0)

	s := ingest.BatchSummary{
		Unit:              confirmUnit,
		Accepted:          41,
		RejectedByReason:  map[string]int{"non_numeric": 2},
		TotalScheduledSum: 987.25,
	}
	if _, err := g.Confirm(context.Background(), s); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}

	prompt := out.String()
	for _, want := range []string{
		"Unit 2026-08-20 cycle 2",
		"accepted rows:   41",
		"non_numeric",
		"Load 41 accepted rows for 2026-08-20 cycle 2? [y/N]:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}

// TestInteractiveSequentialPrompts checks that one gate can serve several
// units in a row from the same input stream.
func TestInteractiveSequentialPrompts(t *testing.T) {
	var out bytes.Buffer
	g := NewInteractive(strings.NewReader("y\nn\n"), &out, 0)

	first, err := g.Confirm(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("First Confirm() error: %v", err)
	}
	if first != Accepted {
		t.Errorf("First Confirm() = %v, want Accepted", first)
	}

	second, err := g.Confirm(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Second Confirm() error: %v", err)
	}
	if second != Rejected {
		t.Errorf("Second Confirm() = %v, want Rejected", second)
	}

	// Input exhausted; a further prompt cannot be answered.
	if _, err := g.Confirm(context.Background(), testSummary()); err == nil {
		t.Error("Expected error once input is exhausted, got nil")
	}
}

func TestInteractiveEOF(t *testing.T) {
	var out bytes.Buffer
	g := NewInteractive(strings.NewReader(""), &out, 0)

	got, err := g.Confirm(context.Background(), testSummary())
	if err == nil {
		t.Fatal("Expected error on EOF, got nil")
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF in the chain, got %v", err)
	}
	if got != Rejected {
		t.Errorf("Confirm() = %v, want Rejected", got)
	}
}

func TestInteractiveTimeout(t *testing.T) {
	// A pipe nobody writes to stands in for a walked-away operator.
	r, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	g := NewInteractive(r, &out, 50*time.Millisecond)

	start := time.Now()
	got, err := g.Confirm(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if got != Rejected {
		t.Errorf("Confirm() = %v, want Rejected", got)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least the 50ms timeout, waited %v", elapsed)
	}
	if !strings.Contains(out.String(), "confirmation timed out") {
		t.Errorf("Expected a timeout notice, got:\n%s", out.String())
	}
}

func TestInteractiveContextCanceled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	g := NewInteractive(r, &out, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := g.Confirm(ctx, testSummary())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if got != Rejected {
		t.Errorf("Confirm() = %v, want Rejected", got)
	}
}
