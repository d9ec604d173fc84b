package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"musicetl/internal/storage"
)

func TestCopyFrom_NoRowsNeedsNoConnection(t *testing.T) {
	t.Parallel()

	r := &Repository{cfg: Config{Table: "dbo.tracks"}}
	n, err := r.CopyFrom(context.Background(), []string{"title", "artist"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestMsIdent(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"title":      "[title]",
		"":           "[]",
		"track name": "[track name]",
		"a]b":        "[a]]b]",
	} {
		if got := msIdent(in); got != want {
			t.Errorf("msIdent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDialect(t *testing.T) {
	t.Parallel()

	td := storage.TableDef{FQN: "dbo.tracks", Columns: []storage.ColumnDef{
		{Name: "title", Kind: storage.KindText, PrimaryKey: true},
		{Name: "explicit", Kind: storage.KindBool, Nullable: true},
		{Name: "added", Kind: storage.KindTimestamp},
	}}
	got, err := storage.BuildCreateTableSQL(storage.Dialect{Quote: msIdent, MapType: msType, IfNotExists: ifNotExists}, td)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"IF OBJECT_ID(N'[dbo].[tracks]', N'U') IS NULL CREATE TABLE [dbo].[tracks] (",
		"[title] NVARCHAR(MAX) NOT NULL",
		"[explicit] BIT,",
		"[added] DATETIME2 NOT NULL",
		"PRIMARY KEY ([title])",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DDL missing %q:\n%s", want, got)
		}
	}
}

/*
brokenDriver accepts connections whose transactions and statements always
fail, so the error paths run without a server.
*/
type brokenDriver struct{}

type brokenConn struct{}

func (brokenDriver) Open(string) (driver.Conn, error) { return brokenConn{}, nil }

func (brokenConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare refused") }
func (brokenConn) Close() error                        { return nil }
func (brokenConn) Begin() (driver.Tx, error)           { return nil, errors.New("begin refused") }

func (brokenConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("begin refused")
}

func (brokenConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec refused")
}

var registerBroken sync.Once

func brokenRepo(t *testing.T) *Repository {
	t.Helper()
	registerBroken.Do(func() { sql.Register("mssql_broken", brokenDriver{}) })
	db, err := sql.Open("mssql_broken", "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &Repository{db: db, cfg: Config{Table: "dbo.tracks"}}
}

func TestErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	r := brokenRepo(t)
	ctx := context.Background()

	err := r.Exec(ctx, "CREATE TABLE x (a INT)")
	if err == nil || !strings.Contains(err.Error(), "mssql: exec: exec refused") {
		t.Fatalf("Exec err = %v", err)
	}

	n, err := r.CopyFrom(ctx, []string{"title", "artist"}, [][]any{{"song a", "band"}, {"song b", "band"}})
	if n != 0 || err == nil || !strings.Contains(err.Error(), "mssql: begin tx: begin refused") {
		t.Fatalf("CopyFrom = %d, %v", n, err)
	}
}

func BenchmarkMsIdent(b *testing.B) {
	ids := []string{"title", "artist_popularity", "a]b", "monthly_listeners"}
	for i := 0; i < b.N; i++ {
		_ = msIdent(ids[i%len(ids)])
	}
}
