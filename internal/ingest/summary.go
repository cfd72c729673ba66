package ingest

import (
	"fmt"
	"io"
	"sort"

	"github.com/OlsenJo/data-extract-app/internal/run"
)

// maxSampleRejects bounds how many rejected rows the confirmation prompt shows.
const maxSampleRejects = 5

// BatchSummary is a read-only preview of a validation result, shown to the
// operator before the unit is committed.
type BatchSummary struct {
	Unit              run.Unit
	Accepted          int
	RejectedByReason  map[string]int
	TotalScheduledSum float64
	SampleRejects     []RejectedRow
}

// Summarize derives the confirmation preview for a validation result. It is
// pure: the same result always produces the same summary.
func Summarize(res *ValidationResult) BatchSummary {
	s := BatchSummary{
		Unit:             res.Unit,
		Accepted:         len(res.Accepted),
		RejectedByReason: make(map[string]int),
	}

	for _, rec := range res.Accepted {
		if rec.TotalScheduled != nil {
			s.TotalScheduledSum += *rec.TotalScheduled
		}
	}

	for _, rej := range res.Rejected {
		s.RejectedByReason[rej.Reason]++
		if len(s.SampleRejects) < maxSampleRejects {
			s.SampleRejects = append(s.SampleRejects, rej)
		}
	}

	return s
}

// Rejected returns the total rejected row count.
func (s BatchSummary) Rejected() int {
	n := 0
	for _, count := range s.RejectedByReason {
		n += count
	}
	return n
}

// WriteText renders the summary for the confirmation prompt.
func (s BatchSummary) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Unit %s\n", s.Unit)
	fmt.Fprintf(w, "  accepted rows:   %d\n", s.Accepted)
	fmt.Fprintf(w, "  rejected rows:   %d\n", s.Rejected())

	reasons := make([]string, 0, len(s.RejectedByReason))
	for reason := range s.RejectedByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "    %-16s %d\n", reason, s.RejectedByReason[reason])
	}

	fmt.Fprintf(w, "  total scheduled: %.2f\n", s.TotalScheduledSum)
	for _, rej := range s.SampleRejects {
		fmt.Fprintf(w, "  row %d: %s\n", rej.Line, rej.Detail)
	}
}
