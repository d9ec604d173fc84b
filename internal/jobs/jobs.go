// Package jobs tracks the lifecycle of background ETL runs. A job moves
// queued -> running -> succeeded | failed and carries a progress percentage,
// an append-only error log, a JSON stats document and the output path.
//
// Stores: Memory (tests, single process), SQLite (default, durable) and
// Redis (shared between API replicas). Publishing wraps any Tracker and emits
// a Kafka event for every change.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

// Kinds of job created by the pipeline.
const (
	KindBulk   = "bulk"
	KindIngest = "ingest"
	KindMerge  = "merge"
)

// ErrNotFound is returned for an unknown job id.
var ErrNotFound = errors.New("jobs: not found")

// Job is the persisted state of one run.
type Job struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Status    Status          `json:"status"`
	Progress  int             `json:"progress"`
	Errors    string          `json:"errors"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Output    string          `json:"cleaned_path"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tracker persists job state. Implementations are safe for concurrent use.
type Tracker interface {
	Create(ctx context.Context, id, kind string) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	SetStatus(ctx context.Context, id string, s Status) error
	SetProgress(ctx context.Context, id string, pct int) error
	// AppendError adds msg as a new line of the job's error log.
	AppendError(ctx context.Context, id, msg string) error
	// SetStats replaces the stats document with the JSON encoding of v.
	SetStats(ctx context.Context, id string, v any) error
	SetOutput(ctx context.Context, id, path string) error
	Close() error
}

func encodeStats(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode stats: %w", err)
	}
	return b, nil
}

func clampProgress(pct int) int {
	return min(max(pct, 0), 100)
}

func appendLine(log, msg string) string {
	if log == "" {
		return msg
	}
	return log + "\n" + msg
}
