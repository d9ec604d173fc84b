package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"musicetl/internal/storage/sqlite"
)

const processesDDL = `CREATE TABLE IF NOT EXISTS processes (
  id         TEXT PRIMARY KEY,
  kind       TEXT NOT NULL,
  status     TEXT NOT NULL,
  progress   INTEGER NOT NULL DEFAULT 0,
  errors     TEXT NOT NULL DEFAULT '',
  stats      TEXT NOT NULL DEFAULT '',
  output     TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`

// stampLayout is fixed width so stored timestamps compare as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite stores jobs in a "processes" table.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and creates) the job database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("jobs: mkdir: %w", err)
		}
	}
	db, err := sqlite.Open(dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, processesDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobs: create processes table: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) stamp() string { return s.now().UTC().Format(stampLayout) }

func (s *SQLite) Create(ctx context.Context, id, kind string) (Job, error) {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processes (id, kind, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, string(StatusQueued), now, now)
	if err != nil {
		return Job{}, fmt.Errorf("jobs: create %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *SQLite) Get(ctx context.Context, id string) (Job, error) {
	var (
		j                Job
		status, stats    string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, progress, errors, stats, output, created_at, updated_at FROM processes WHERE id = ?`, id).
		Scan(&j.ID, &j.Kind, &status, &j.Progress, &j.Errors, &stats, &j.Output, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("jobs: get %s: %w", id, err)
	}
	j.Status = Status(status)
	if stats != "" {
		j.Stats = []byte(stats)
	}
	j.CreatedAt, _ = time.Parse(stampLayout, created)
	j.UpdatedAt, _ = time.Parse(stampLayout, updated)
	return j, nil
}

func (s *SQLite) exec(ctx context.Context, id, set string, args ...any) error {
	args = append(args, s.stamp(), id)
	res, err := s.db.ExecContext(ctx, `UPDATE processes SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("jobs: update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SetStatus(ctx context.Context, id string, st Status) error {
	return s.exec(ctx, id, "status = ?", string(st))
}

func (s *SQLite) SetProgress(ctx context.Context, id string, pct int) error {
	return s.exec(ctx, id, "progress = ?", clampProgress(pct))
}

func (s *SQLite) AppendError(ctx context.Context, id, msg string) error {
	return s.exec(ctx, id, `errors = CASE WHEN errors = '' THEN ? ELSE errors || char(10) || ? END`, msg, msg)
}

func (s *SQLite) SetStats(ctx context.Context, id string, v any) error {
	raw, err := encodeStats(v)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, "stats = ?", string(raw))
}

func (s *SQLite) SetOutput(ctx context.Context, id, path string) error {
	return s.exec(ctx, id, "output = ?", path)
}

// Expired returns the ids of terminal jobs last updated before cutoff.
func (s *SQLite) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM processes WHERE status IN (?, ?) AND updated_at < ?`,
		string(StatusSucceeded), string(StatusFailed), cutoff.UTC().Format(stampLayout))
	if err != nil {
		return nil, fmt.Errorf("jobs: expired: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a job record.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE id = ?`, id)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }
