// Package retention removes uploads, job outputs and finished job records
// once they are older than a configured age.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"musicetl/internal/config"
	"musicetl/internal/jobs"
)

// Target selects files under Dir whose base name matches Pattern
// (filepath.Match syntax).
type Target struct {
	Dir     string
	Pattern string
}

// Pruner is implemented by job stores that can drop finished jobs.
type Pruner interface {
	Expired(ctx context.Context, cutoff time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Report counts what one sweep removed.
type Report struct {
	Files int `json:"files"`
	Jobs  int `json:"jobs"`
}

// Sweeper deletes expired files and jobs, on demand or on a cron schedule.
type Sweeper struct {
	Targets []Target
	MaxAge  time.Duration
	// Jobs is optional.
	Jobs Pruner

	log  *slog.Logger
	now  func() time.Time
	cron *cron.Cron
}

// Targets returns the default sweep set for app: every upload, bulk outputs
// and per-job ingest outputs. Shared interim and merged files are kept.
func Targets(app config.App) []Target {
	return []Target{
		{Dir: app.UploadsDir(), Pattern: "*"},
		{Dir: app.ProcessedDir(), Pattern: "cleaned_*.csv"},
		{Dir: app.InterimDir(), Pattern: "*-D?-clean.csv"},
	}
}

// New builds a Sweeper for app. Job records are pruned when tracker, or a
// tracker it decorates, supports it.
func New(app config.App, tracker jobs.Tracker, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		Targets: Targets(app),
		MaxAge:  app.Retention.MaxAge,
		log:     logger,
		now:     time.Now,
	}
	for tracker != nil {
		if p, ok := tracker.(Pruner); ok {
			s.Jobs = p
			break
		}
		u, ok := tracker.(interface{ Unwrap() jobs.Tracker })
		if !ok {
			break
		}
		tracker = u.Unwrap()
	}
	return s
}

// Sweep removes everything older than MaxAge. A non-positive MaxAge
// disables it. Errors on single files are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	var rep Report
	if s.MaxAge <= 0 {
		return rep, nil
	}
	cutoff := s.now().Add(-s.MaxAge)

	for _, t := range s.Targets {
		n, err := s.sweepDir(t, cutoff)
		rep.Files += n
		if err != nil {
			return rep, err
		}
	}

	if s.Jobs != nil {
		ids, err := s.Jobs.Expired(ctx, cutoff)
		if err != nil {
			return rep, fmt.Errorf("retention: list expired jobs: %w", err)
		}
		for _, id := range ids {
			if err := s.Jobs.Delete(ctx, id); err != nil {
				s.log.Warn("retention: delete job", "id", id, "err", err)
				continue
			}
			rep.Jobs++
		}
	}
	s.log.Info("retention sweep", "files", rep.Files, "jobs", rep.Jobs, "cutoff", cutoff)
	return rep, nil
}

func (s *Sweeper) sweepDir(t Target, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(t.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("retention: read %s: %w", t.Dir, err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(t.Pattern, e.Name())
		if err != nil {
			return removed, fmt.Errorf("retention: pattern %q: %w", t.Pattern, err)
		}
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(t.Dir, e.Name())
		if err := os.Remove(p); err != nil {
			s.log.Warn("retention: remove", "path", p, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Start runs Sweep on schedule (standard cron syntax or descriptors such as
// "@daily") until Stop is called.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if s.cron != nil {
		return errors.New("retention: already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("retention sweep failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("retention: schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("retention scheduled", "schedule", schedule, "max_age", s.MaxAge)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}
