package mssql

import (
	"context"
	"reflect"
	"testing"

	"musicetl/internal/storage"
)

// Not parallel: replaces newRepository.
func TestAdapter(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	inner := &Repository{}
	var gotCfg Config
	closes := 0
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return inner, func() { closes++ }, nil
	}

	cfg := storage.Config{Kind: "mssql", DSN: "sqlserver://sa:pw@localhost:1433?database=music", Table: "dbo.tracks", Columns: []string{"title", "artist"}}
	repo, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if want := (Config{DSN: cfg.DSN, Table: cfg.Table, Columns: cfg.Columns}); !reflect.DeepEqual(gotCfg, want) {
		t.Errorf("cfg = %#v, want %#v", gotCfg, want)
	}
	if w, ok := repo.(*wrappedRepo); !ok || w.Repository != inner {
		t.Fatalf("repo = %#v, want wrapper around the hook's repository", repo)
	}
	repo.Close()
	if closes != 1 {
		t.Fatalf("close calls = %d, want 1", closes)
	}
}
