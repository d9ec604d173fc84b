package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"musicetl/internal/storage"
	"musicetl/pkg/records"
)

/*
Package-level test helpers (TB-aware)
*/

func newMemDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepo(tb testing.TB, table string, cols ...string) *Repository {
	tb.Helper()
	return New(newMemDB(tb), Config{Table: table, Columns: cols})
}

func mustExec(tb testing.TB, r *Repository, sqlStmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), sqlStmt); err != nil {
		tb.Fatalf("exec %q: %v", sqlStmt, err)
	}
}

/*
Unit tests
*/

// TestNewRepositoryAndCopyFrom checks NewRepository opens a DB and CopyFrom
// inserts rows using the configured table.
func TestNewRepositoryAndCopyFrom(t *testing.T) {
	t.Parallel()

	cfg := Config{DSN: ":memory:", Table: "tracks", Columns: []string{"id", "name"}}
	r, closeFn, err := NewRepository(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	mustExec(t, r, `CREATE TABLE tracks (id INTEGER, name TEXT)`)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := r.CopyFrom(context.Background(), cfg.Columns, rows)
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("CopyFrom affected: got %d want %d", n, len(rows))
	}

	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&count); err != nil {
		t.Fatalf("verify count: %v", err)
	}
	if count != len(rows) {
		t.Fatalf("row count mismatch: got %d want %d", count, len(rows))
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

// TestCopyFrom_RowLengthMismatch rolls back the whole batch.
func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	t.Parallel()

	r := newRepo(t, "t", "a", "b")
	mustExec(t, r, `CREATE TABLE t (a INTEGER, b TEXT)`)

	_, err := r.CopyFrom(context.Background(), []string{"a", "b"}, [][]any{{1, "x"}, {2}})
	if err == nil || !strings.Contains(err.Error(), "row length") {
		t.Fatalf("expected row length error, got %v", err)
	}
	var count int
	_ = r.db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&count)
	if count != 0 {
		t.Fatalf("count = %d, want 0 after rollback", count)
	}
}

// TestExport drives the full storage.Export path against an in-memory DB
// shared through the newRepository hook.
func TestExport(t *testing.T) {
	db := newMemDB(t)
	orig := newRepository
	defer func() { newRepository = orig }()
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return New(db, cfg), func() {}, nil
	}

	tbl := &records.Table{
		Columns: []string{"title", "artist", "tempo", "explicit", "release_date"},
		Rows: []records.Record{
			{"title": "a", "artist": "x", "tempo": 120.0, "explicit": true, "release_date": time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
			{"title": "b", "artist": "y", "tempo": nil, "explicit": false, "release_date": nil},
		},
	}
	res, err := storage.Export(context.Background(),
		storage.Config{Kind: "sqlite", DSN: "unused", Table: "tracks", KeyColumns: []string{"title", "artist"}}, tbl, 10)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Rows != 2 || res.Batches != 1 {
		t.Fatalf("result = %+v", res)
	}

	var ddl string
	if err := db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'tracks'`).Scan(&ddl); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, w := range []string{`"tempo" REAL`, `"explicit" INTEGER NOT NULL`, `PRIMARY KEY ("title", "artist")`} {
		if !strings.Contains(ddl, w) {
			t.Errorf("schema %q missing %q", ddl, w)
		}
	}

	var date string
	if err := db.QueryRow(`SELECT release_date FROM tracks WHERE title = 'a'`).Scan(&date); err != nil {
		t.Fatalf("select: %v", err)
	}
	if date != "2020-01-02" {
		t.Fatalf("release_date = %q", date)
	}
}

/*
Benchmarks
*/

// BenchmarkSqlite_CopyFrom measures the transaction + prepared statement path.
func BenchmarkSqlite_CopyFrom(b *testing.B) {
	r := newRepo(b, "bench", "id", "name")
	mustExec(b, r, `CREATE TABLE bench (id INTEGER, name TEXT)`)

	const batch = 256
	rows := make([][]any, batch)
	for i := 0; i < batch; i++ {
		rows[i] = []any{i, fmt.Sprintf("track_%d", i)}
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := r.CopyFrom(context.Background(), r.cfg.Columns, rows); err != nil {
			b.Fatal(err)
		}
	}
}
