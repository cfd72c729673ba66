// Package pipeline drives gas-day units through fetch, validation,
// confirmation and load, isolating failures per unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/OlsenJo/data-extract-app/internal/confirm"
	"github.com/OlsenJo/data-extract-app/internal/fetch"
	"github.com/OlsenJo/data-extract-app/internal/ingest"
	"github.com/OlsenJo/data-extract-app/internal/retry"
	"github.com/OlsenJo/data-extract-app/internal/run"
	"github.com/OlsenJo/data-extract-app/internal/store"
)

// Fetcher retrieves one unit's raw payload.
type Fetcher interface {
	Fetch(ctx context.Context, u run.Unit) (fetch.Payload, error)
}

// Validator turns a raw payload into typed records and row rejections.
type Validator interface {
	Validate(u run.Unit, body []byte) (*ingest.ValidationResult, error)
}

// Loader commits one unit's accepted records atomically.
type Loader interface {
	Load(ctx context.Context, u run.Unit, records []ingest.ShipmentRecord) (store.LoadReport, error)
}

// Cleaner removes a unit's spooled payload once the unit is done.
type Cleaner interface {
	Cleanup(path string) error
}

// Options tunes a pipeline beyond its collaborators.
type Options struct {
	Cleaner     Cleaner       // optional spool cleanup after each unit
	LoadRetry   retry.Policy  // bounds ConnectionError retries
	LoadTimeout time.Duration // per-transaction bound; 0 means none
	FailFast    bool          // stop the run after the first failed unit
	Logger      *log.Logger   // nil discards
}

// Pipeline owns one run of the ingestion sequence. All collaborators are
// injected; the pipeline itself keeps no global state.
type Pipeline struct {
	fetcher     Fetcher
	validator   Validator
	loader      Loader
	gate        confirm.Gate
	cleaner     Cleaner
	loadRetry   retry.Policy
	loadTimeout time.Duration
	failFast    bool
	logger      *log.Logger
	timings     *Timings
}

// New wires a pipeline from its collaborators.
func New(fetcher Fetcher, validator Validator, loader Loader, gate confirm.Gate, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		fetcher:     fetcher,
		validator:   validator,
		loader:      loader,
		gate:        gate,
		cleaner:     opts.Cleaner,
		loadRetry:   opts.LoadRetry,
		loadTimeout: opts.LoadTimeout,
		failFast:    opts.FailFast,
		logger:      logger,
		timings:     NewTimings(),
	}
}

// Run processes units sequentially, oldest first, and returns the populated
// report. Every unit gets a report entry no matter how its predecessors
// fared, unless fail-fast cuts the run short. A canceled context stops the
// run between units; the returned error then says so while the report still
// covers everything processed.
func (p *Pipeline) Run(ctx context.Context, units []run.Unit) (*run.Report, error) {
	report := run.NewReport()
	p.logger.Printf("run %s: processing %d units", report.RunID(), len(units))

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			p.logger.Printf("run %s: canceled after %d of %d units", report.RunID(), i, len(units))
			return report, fmt.Errorf("run canceled: %w", err)
		}
		state := p.processUnit(ctx, u, report)
		if p.failFast && state == run.StateFailed {
			p.logger.Printf("run %s: stopping after failed unit %s (fail fast)", report.RunID(), u)
			return report, fmt.Errorf("fail fast: unit %s failed", u)
		}
	}

	c := report.Counts()
	p.logger.Printf("run %s: done: %d succeeded, %d partial, %d skipped, %d failed",
		report.RunID(), c.Succeeded, c.PartiallyRejected, c.Skipped, c.Failed)
	p.logger.Printf("run %s: timings: %s", report.RunID(), p.timings)
	return report, nil
}

// processUnit walks one unit through the state machine, appends exactly one
// report entry whatever happens, and returns the terminal state.
func (p *Pipeline) processUnit(ctx context.Context, u run.Unit, report *run.Report) run.State {
	entry := run.Entry{Unit: u, StartedAt: time.Now()}
	state := run.StatePending

	fail := func(err error) {
		entry.State = run.StateFailed
		entry.Detail = fmt.Sprintf("%s: %v", Classify(err), err)
		entry.FinishedAt = time.Now()
		report.Append(entry)
		p.logger.Printf("unit %s: failed: %v", u, err)
	}

	finish := func(detail string) {
		entry.State = state
		entry.Detail = detail
		entry.FinishedAt = time.Now()
		report.Append(entry)
	}

	advance := func(to run.State) bool {
		next, err := run.Transition(state, to)
		if err != nil {
			fail(err)
			return false
		}
		state = next
		return true
	}

	if !advance(run.StateFetching) {
		return entry.State
	}
	fetchStart := time.Now()
	payload, err := p.fetcher.Fetch(ctx, u)
	p.timings.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		fail(err)
		return entry.State
	}
	if p.cleaner != nil && payload.SpoolPath != "" {
		defer func() {
			if err := p.cleaner.Cleanup(payload.SpoolPath); err != nil {
				p.logger.Printf("unit %s: %v", u, err)
			}
		}()
	}
	p.logger.Printf("unit %s: fetched %d bytes", u, len(payload.Body))

	if !advance(run.StateValidating) {
		return entry.State
	}
	validateStart := time.Now()
	result, err := p.validator.Validate(u, payload.Body)
	p.timings.ObserveValidate(time.Since(validateStart))
	if err != nil {
		fail(err)
		return entry.State
	}
	entry.Accepted = len(result.Accepted)
	entry.Rejected = len(result.Rejected)
	p.logger.Printf("unit %s: validated: %d accepted, %d rejected", u, entry.Accepted, entry.Rejected)

	if !advance(run.StateSummarizing) {
		return entry.State
	}
	summary := ingest.Summarize(result)

	if !advance(run.StateAwaitingConfirmation) {
		return entry.State
	}
	confirmStart := time.Now()
	decision, err := p.gate.Confirm(ctx, summary)
	p.timings.ObserveConfirm(time.Since(confirmStart))
	if err != nil {
		fail(fmt.Errorf("confirmation: %w", err))
		return entry.State
	}
	if decision != confirm.Accepted {
		if !advance(run.StateSkippedByOperator) {
			return entry.State
		}
		finish("operator rejected batch")
		p.logger.Printf("unit %s: skipped by operator", u)
		return entry.State
	}

	if !advance(run.StateLoading) {
		return entry.State
	}
	// The transaction must run to commit or rollback even if the run is being
	// canceled; only its own timeout can cut it short.
	loadCtx := context.WithoutCancel(ctx)
	if p.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, p.loadTimeout)
		defer cancel()
	}
	loadStart := time.Now()
	var loadReport store.LoadReport
	err = p.loadRetry.Do(loadCtx, store.IsRetryable, func(ctx context.Context) error {
		var err error
		loadReport, err = p.loader.Load(ctx, u, result.Accepted)
		return err
	})
	p.timings.ObserveLoad(time.Since(loadStart))
	if err != nil {
		fail(err)
		return entry.State
	}
	entry.Inserted = loadReport.Inserted

	terminal := run.StateSucceeded
	detail := ""
	if entry.Rejected > 0 {
		terminal = run.StatePartiallyRejected
		detail = fmt.Sprintf("%d rows rejected during validation", entry.Rejected)
	}
	if !advance(terminal) {
		return entry.State
	}
	finish(detail)
	p.logger.Printf("unit %s: %s, %d rows inserted", u, state, loadReport.Inserted)
	return entry.State
}

// Classify names the error class for the run report.
func Classify(err error) string {
	var (
		fetchErr  *fetch.FetchError
		schemaErr *ingest.SchemaError
		connErr   *store.ConnectionError
		integErr  *store.IntegrityError
		loadErr   *store.LoadError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.As(err, &schemaErr):
		return "SchemaError"
	case errors.As(err, &fetchErr):
		return "FetchError"
	case errors.As(err, &connErr):
		return "ConnectionError"
	case errors.As(err, &integErr):
		return "IntegrityError"
	case errors.As(err, &loadErr):
		return "LoadError"
	default:
		return "Error"
	}
}
