package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OlsenJo/data-extract-app/internal/config"
	"github.com/OlsenJo/data-extract-app/internal/confirm"
	"github.com/OlsenJo/data-extract-app/internal/fetch"
	"github.com/OlsenJo/data-extract-app/internal/ingest"
	"github.com/OlsenJo/data-extract-app/internal/pipeline"
	"github.com/OlsenJo/data-extract-app/internal/run"
	"github.com/OlsenJo/data-extract-app/internal/store"
)

type runOptions struct {
	days     int
	date     string
	cycles   string
	yes      bool
	dryRun   bool
	failFast bool
	upsert   bool
	keepTemp bool
	jsonOut  bool
	logFile  string
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.days, "days", 0, "Days of history to process (default LOOKBACK_DAYS, 3)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Process a single gas day (YYYY-MM-DD) instead of the window")
	cmd.Flags().StringVar(&opts.cycles, "cycles", "", "Comma-separated cycles to process, e.g. 1,3,5 (default CYCLES)")
	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Accept every batch without prompting")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Reject every batch at the gate; nothing is loaded")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop the run after the first failed unit")
	cmd.Flags().BoolVar(&opts.upsert, "upsert", false, "Update existing rows on conflict instead of failing the unit")
	cmd.Flags().BoolVar(&opts.keepTemp, "keep-temp", false, "Keep spooled payload files after each unit")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Write the run report as JSON")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Mirror logs to this file as well as stderr")
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, validate, confirm and load recent gas days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

// runPipeline wires the collaborators from config plus flag overrides and
// drives one full run.
func runPipeline(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return withCode(exitUsage, err)
	}
	if opts.days != 0 {
		if opts.days < 1 {
			return withCode(exitUsage, fmt.Errorf("--days must be at least 1, got %d", opts.days))
		}
		cfg.LookbackDays = opts.days
	}
	if opts.cycles != "" {
		cycles, err := config.ParseCycles(opts.cycles)
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("--cycles: %w", err))
		}
		cfg.Cycles = cycles
	}
	if opts.failFast {
		cfg.FailFast = true
	}
	if opts.upsert {
		cfg.Upsert = true
	}
	if opts.keepTemp {
		cfg.KeepTempFiles = true
	}

	logger, closeLogs, err := newLogger(opts.logFile)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer closeLogs()

	var units []run.Unit
	if opts.date != "" {
		day, err := time.Parse("2006-01-02", opts.date)
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("--date: invalid gas day %q", opts.date))
		}
		units = run.UnitsForDay(day, cfg.Cycles)
	} else {
		units = run.UnitsForWindow(time.Now(), cfg.LookbackDays, cfg.Cycles)
	}

	gate, err := buildGate(opts, cfg)
	if err != nil {
		return withCode(exitUsage, err)
	}

	validator, err := ingest.NewValidator(cfg.SourceEncoding)
	if err != nil {
		return withCode(exitUsage, err)
	}

	spool, err := fetch.NewSpool(cfg.TempDir, cfg.KeepTempFiles)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("temp dir: %w", err))
	}
	if cfg.KeepTempFiles {
		logger.Printf("keeping fetched payloads under %s", spool.Dir())
	}

	fetcher := fetch.NewClient(cfg.BaseURL, cfg.RequestTimeout, cfg.FetchRetry, spool, logger)

	st, err := store.New(ctx, cfg.DB.DSN(), store.Options{
		MaxConns:  cfg.DB.MaxConns,
		BatchSize: cfg.BatchSize,
		Upsert:    cfg.Upsert,
	}, logger)
	if err != nil {
		return withCode(exitStore, err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return withCode(exitStore, err)
	}

	p := pipeline.New(fetcher, validator, st, gate, pipeline.Options{
		Cleaner:     spool,
		LoadRetry:   cfg.LoadRetry,
		LoadTimeout: cfg.LoadTimeout,
		FailFast:    cfg.FailFast,
		Logger:      logger,
	})

	report, runErr := p.Run(ctx, units)
	if err := writeReport(os.Stdout, report, opts.jsonOut); err != nil {
		return withCode(exitRunFailed, err)
	}
	if runErr != nil {
		return withCode(exitRunFailed, runErr)
	}
	if c := report.Counts(); c.Failed > 0 && c.Succeeded == 0 && c.PartiallyRejected == 0 {
		return withCode(exitRunFailed, fmt.Errorf("%d units failed, none succeeded", c.Failed))
	}
	return nil
}

// buildGate picks the confirmation gate the flags ask for. Without --yes or
// --dry-run an interactive prompt is required, so a non-terminal stdin is
// refused up front rather than hanging a scheduled run.
func buildGate(opts runOptions, cfg config.Config) (confirm.Gate, error) {
	switch {
	case opts.dryRun:
		return confirm.NewAuto(false), nil
	case opts.yes:
		return confirm.NewAuto(true), nil
	default:
		if !confirm.StdinIsTTY() {
			return nil, errors.New("stdin is not a terminal; rerun with --yes or --dry-run")
		}
		return confirm.NewInteractive(os.Stdin, os.Stdout, cfg.ConfirmTimeout), nil
	}
}

func newLogger(logFile string) (*log.Logger, func(), error) {
	if logFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := log.New(io.MultiWriter(os.Stderr, f), "", log.LstdFlags)
	return logger, func() { _ = f.Close() }, nil
}

type reportJSON struct {
	RunID      string      `json:"runId"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Counts     run.Counts  `json:"counts"`
	Units      []run.Entry `json:"units"`
}

func writeReport(w io.Writer, report *run.Report, asJSON bool) error {
	entries := report.Entries()
	counts := report.Counts()

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportJSON{
			RunID:      report.RunID(),
			StartedAt:  report.StartedAt(),
			FinishedAt: time.Now(),
			Counts:     counts,
			Units:      entries,
		})
	}

	fmt.Fprintf(w, "run %s\n", report.RunID())
	for _, e := range entries {
		line := fmt.Sprintf("  %s  %-20s accepted=%d rejected=%d inserted=%d",
			e.Unit, e.State, e.Accepted, e.Rejected, e.Inserted)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d succeeded, %d partially rejected, %d skipped, %d failed\n",
		counts.Succeeded, counts.PartiallyRejected, counts.Skipped, counts.Failed)
	return nil
}
