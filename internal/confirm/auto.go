package confirm

import (
	"context"

	"github.com/OlsenJo/data-extract-app/internal/ingest"
)

// Auto is the unattended gate: it applies a fixed policy without prompting.
// Accept-all backs the --yes flag, reject-all backs --dry-run.
type Auto struct {
	accept bool
}

// NewAuto creates an automatic gate with the given policy.
func NewAuto(accept bool) *Auto {
	return &Auto{accept: accept}
}

func (a *Auto) Confirm(_ context.Context, _ ingest.BatchSummary) (Decision, error) {
	if a.accept {
		return Accepted, nil
	}
	return Rejected, nil
}
