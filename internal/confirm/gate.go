// Package confirm holds the confirmation gate between validation and load.
package confirm

import (
	"context"

	"github.com/OlsenJo/data-extract-app/internal/ingest"
)

// Decision is the operator's verdict on a unit's batch.
type Decision int

const (
	Rejected Decision = iota
	Accepted
)

func (d Decision) String() string {
	if d == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Gate blocks a unit between summarize and load until a decision is made.
// Rejection is a deliberate skip, not an error; implementations return an
// error only when no decision could be obtained at all.
type Gate interface {
	Confirm(ctx context.Context, summary ingest.BatchSummary) (Decision, error)
}
