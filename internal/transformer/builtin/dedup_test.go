package builtin

import (
	"reflect"
	"testing"

	"musicetl/pkg/records"
)

func mk(title, artist string, fields map[string]any) records.Record {
	r := records.Record{"title": title, "artist": artist}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func table(rows ...records.Record) *records.Table {
	return &records.Table{Columns: []string{"title", "artist", "album"}, Rows: rows}
}

func TestDeDupKeepFirst(t *testing.T) {
	t.Parallel()

	in := table(
		mk("a", "x", map[string]any{"album": "A"}),
		mk("a", "x", map[string]any{"album": "B"}),
		mk("b", "x", map[string]any{"album": "C"}),
	)
	got := DeDup{Keys: []string{"title", "artist"}}.Apply(in).Rows
	want := []records.Record{
		mk("a", "x", map[string]any{"album": "A"}),
		mk("b", "x", map[string]any{"album": "C"}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-first: got %#v want %#v", got, want)
	}
}

func TestDeDupKeepLast(t *testing.T) {
	t.Parallel()

	in := table(
		mk("a", "x", map[string]any{"album": "A"}),
		mk("b", "x", map[string]any{"album": "C"}),
		mk("a", "x", map[string]any{"album": "B"}),
	)
	got := DeDup{Keys: []string{"title", "artist"}, Policy: "keep-last"}.Apply(in).Rows
	want := []records.Record{
		mk("a", "x", map[string]any{"album": "B"}),
		mk("b", "x", map[string]any{"album": "C"}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-last: got %#v want %#v", got, want)
	}
}

func TestDeDupMostComplete(t *testing.T) {
	t.Parallel()

	in := table(
		mk("a", "x", map[string]any{"album": ""}),
		mk("a", "x", map[string]any{"album": "B"}),
		mk("a", "x", map[string]any{"album": "C"}),
	)
	got := DeDup{Keys: []string{"title", "artist"}, Policy: "most-complete"}.Apply(in).Rows
	want := []records.Record{mk("a", "x", map[string]any{"album": "B"})}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("most-complete: got %#v want %#v", got, want)
	}
}

func TestDeDup_AbsentKeysAreSkipped(t *testing.T) {
	t.Parallel()

	in := &records.Table{
		Columns: []string{"artist"},
		Rows:    []records.Record{{"artist": "x"}, {"artist": "x"}, {"artist": "y"}},
	}
	got := DeDup{Keys: []string{"title", "artist"}}.Apply(in)
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2", got.Len())
	}

	none := &records.Table{Columns: []string{"other"}, Rows: []records.Record{{"other": 1}, {"other": 1}}}
	if (DeDup{Keys: []string{"title"}}).Apply(none).Len() != 2 {
		t.Fatal("no key column present: rows must be kept")
	}
}
