// Package pipeline runs the engine end to end: single-source ingestion,
// the song/artist merge, and bulk multi-file cleaning with progress and job
// tracking.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"musicetl/internal/jobs"
	"musicetl/internal/load"
	"musicetl/internal/metrics"
)

// ErrMissingInput reports merge inputs that do not exist.
var ErrMissingInput = errors.New("pipeline: missing input")

// ErrNoFileCleaned is returned by RunBulk when every file failed.
var ErrNoFileCleaned = errors.New("pipeline: no file was cleaned")

// Runner holds the collaborators shared by every run. The zero value runs
// without job tracking, warehouse export or concurrency.
type Runner struct {
	// Tracker receives status, progress, errors, stats and output of runs
	// started with a non-empty job id. Nil disables tracking.
	Tracker jobs.Tracker
	// Warehouse receives a copy of each output when enabled.
	Warehouse load.Warehouse
	// Workers bounds how many bulk files are processed at once.
	Workers int
	// Job labels metrics; defaults to "musicetl".
	Job string
}

func (r *Runner) job() string {
	if r.Job == "" {
		return "musicetl"
	}
	return r.Job
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

// step times fn and records it under name.
func (r *Runner) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(r.job(), name, err, time.Since(start))
	return err
}

// Tracker calls are best effort: a failing status store is logged and never
// fails the run itself.

func (r *Runner) tracked(id string) bool { return id != "" && r.Tracker != nil }

func (r *Runner) setStatus(ctx context.Context, id string, s jobs.Status) {
	if !r.tracked(id) {
		return
	}
	if err := r.Tracker.SetStatus(ctx, id, s); err != nil {
		log.Printf("pipeline: job %s: set status %s: %v", id, s, err)
	}
}

func (r *Runner) setProgress(ctx context.Context, id string, pct int) {
	if !r.tracked(id) {
		return
	}
	if err := r.Tracker.SetProgress(ctx, id, pct); err != nil {
		log.Printf("pipeline: job %s: set progress %d: %v", id, pct, err)
	}
}

func (r *Runner) appendError(ctx context.Context, id, msg string) {
	if !r.tracked(id) {
		return
	}
	if err := r.Tracker.AppendError(ctx, id, msg); err != nil {
		log.Printf("pipeline: job %s: append error: %v", id, err)
	}
}

func (r *Runner) setStats(ctx context.Context, id string, v any) {
	if !r.tracked(id) {
		return
	}
	if err := r.Tracker.SetStats(ctx, id, v); err != nil {
		log.Printf("pipeline: job %s: set stats: %v", id, err)
	}
}

func (r *Runner) setOutput(ctx context.Context, id, path string) {
	if !r.tracked(id) {
		return
	}
	if err := r.Tracker.SetOutput(ctx, id, path); err != nil {
		log.Printf("pipeline: job %s: set output: %v", id, err)
	}
}

// finish records the terminal state of a tracked job.
func (r *Runner) finish(ctx context.Context, id, kind string, err error) {
	status := jobs.StatusSucceeded
	if err != nil {
		status = jobs.StatusFailed
		r.appendError(ctx, id, err.Error())
	} else {
		r.setProgress(ctx, id, 100)
	}
	r.setStatus(ctx, id, status)
	if r.tracked(id) {
		metrics.RecordJob(kind, string(status))
	}
}
