package mysql

import (
	"context"
	"strings"
	"testing"

	"musicetl/internal/storage"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("music.tracks", []string{"title", "artist"}, 2)
	want := "INSERT INTO `music`.`tracks` (`title`, `artist`) VALUES (?, ?), (?, ?)"
	if got != want {
		t.Fatalf("insertSQL = %q, want %q", got, want)
	}
}

func TestChunkRows(t *testing.T) {
	t.Parallel()

	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	tests := []struct {
		size int
		want []int
	}{
		{size: 2, want: []int{2, 2, 1}},
		{size: 5, want: []int{5}},
		{size: 10, want: []int{5}},
		{size: 0, want: []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		got := chunkRows(rows, tt.size)
		if len(got) != len(tt.want) {
			t.Fatalf("size=%d chunks=%d, want %d", tt.size, len(got), len(tt.want))
		}
		for i := range got {
			if len(got[i]) != tt.want[i] {
				t.Fatalf("size=%d chunk %d len=%d, want %d", tt.size, i, len(got[i]), tt.want[i])
			}
		}
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"})
	if err == nil || !strings.Contains(err.Error(), "mysql dsn") {
		t.Fatalf("expected dsn error, got %v", err)
	}
}

func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := &Repository{cfg: Config{Table: "tracks"}}
	n, err := r.CopyFrom(context.Background(), []string{"title"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v", n, err)
	}
}

func TestDialect(t *testing.T) {
	t.Parallel()

	td := storage.TableDef{FQN: "tracks", Columns: []storage.ColumnDef{
		{Name: "title", Kind: storage.KindText, PrimaryKey: true},
		{Name: "explicit", Kind: storage.KindBool, Nullable: true},
	}}
	got, err := storage.BuildCreateTableSQL(storage.Dialect{Quote: myIdent, MapType: myType}, td)
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE IF NOT EXISTS `tracks` (\n  `title` VARCHAR(512) NOT NULL,\n  `explicit` BOOLEAN,\n  PRIMARY KEY (`title`)\n);"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

// TestMySQLStorageRegistrationUsesNewRepositoryHook verifies that the "mysql"
// backend registered in init() routes through newRepository.
func TestMySQLStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "mysql", DSN: "user:pw@tcp(localhost:3306)/music", Table: "tracks", Columns: []string{"title"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.Table != "tracks" || gotCfg.DSN == "" {
		t.Fatalf("hook cfg = %#v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not invoke closeFn")
	}
}
