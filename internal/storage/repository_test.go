package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

// fakeRepo counts rows and remembers statements.
type fakeRepo struct {
	rows   int64
	stmts  []string
	closed bool
}

func (f *fakeRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	f.rows += int64(len(rows))
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.stmts = append(f.stmts, sql)
	return nil
}

func (f *fakeRepo) Close() { f.closed = true }

func factoryFor(r Repository, err error) Factory {
	return func(context.Context, Config) (Repository, error) { return r, err }
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	boom := errors.New("warehouse down")
	first, second := &fakeRepo{}, &fakeRepo{}
	Register("registry-ok", factoryFor(first, nil))
	Register("registry-replaced", factoryFor(first, nil))
	Register("registry-replaced", factoryFor(second, nil))
	Register("registry-err", factoryFor(nil, boom))

	tests := []struct {
		kind    string
		want    Repository
		wantErr error
	}{
		{kind: "registry-ok", want: first},
		{kind: "registry-replaced", want: second},
		{kind: "registry-err", wantErr: boom},
	}
	for _, tt := range tests {
		got, err := New(context.Background(), Config{Kind: tt.kind})
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: err = %v, want %v", tt.kind, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("%s: got %p, want %p", tt.kind, got, tt.want)
		}
	}

	kinds := ListKinds()
	for _, k := range []string{"registry-ok", "registry-replaced", "registry-err"} {
		if !slices.Contains(kinds, k) {
			t.Fatalf("ListKinds() = %v, missing %s", kinds, k)
		}
	}
	if !slices.IsSorted(kinds) {
		t.Fatalf("ListKinds() not sorted: %v", kinds)
	}
	kinds[0] = "mutated"
	if slices.Contains(ListKinds(), "mutated") {
		t.Fatal("ListKinds returned the registry's own slice")
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "oracle"})
	if err == nil || !strings.HasPrefix(err.Error(), `storage: unsupported kind "oracle"`) {
		t.Fatalf("err = %v", err)
	}
}
