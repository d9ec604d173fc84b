package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Tracker.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{jobs: map[string]*Job{}, now: time.Now}
}

func (m *Memory) Create(_ context.Context, id, kind string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; ok {
		return Job{}, fmt.Errorf("jobs: duplicate id %s", id)
	}
	now := m.now().UTC()
	j := &Job{ID: id, Kind: kind, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	m.jobs[id] = j
	return *j, nil
}

func (m *Memory) Get(_ context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	out := *j
	out.Stats = append([]byte(nil), j.Stats...)
	return out, nil
}

func (m *Memory) update(id string, fn func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(j)
	j.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) SetStatus(_ context.Context, id string, s Status) error {
	return m.update(id, func(j *Job) { j.Status = s })
}

func (m *Memory) SetProgress(_ context.Context, id string, pct int) error {
	return m.update(id, func(j *Job) { j.Progress = clampProgress(pct) })
}

func (m *Memory) AppendError(_ context.Context, id, msg string) error {
	return m.update(id, func(j *Job) { j.Errors = appendLine(j.Errors, msg) })
}

func (m *Memory) SetStats(_ context.Context, id string, v any) error {
	raw, err := encodeStats(v)
	if err != nil {
		return err
	}
	return m.update(id, func(j *Job) { j.Stats = raw })
}

func (m *Memory) SetOutput(_ context.Context, id, path string) error {
	return m.update(id, func(j *Job) { j.Output = path })
}

func (m *Memory) Close() error { return nil }
