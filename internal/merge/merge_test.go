package merge

import (
	"reflect"
	"testing"

	"musicetl/pkg/records"
)

func TestSongs_LeftEnrich(t *testing.T) {
	t.Parallel()

	songs := &records.Table{
		Columns: []string{"title", "artist"},
		Rows: []records.Record{
			{"title": "s1", "artist": "a"},
			{"title": "s2", "artist": "b"},
		},
	}
	artists := &records.Table{
		Columns: []string{"artist", "followers"},
		Rows:    []records.Record{{"artist": "a", "followers": 10.0}},
	}

	out, st := Songs([]*records.Table{songs}, artists)
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
	if !reflect.DeepEqual(out.Columns, []string{"title", "artist", "followers"}) {
		t.Fatalf("columns = %v", out.Columns)
	}
	if out.Rows[0]["followers"] != 10.0 {
		t.Fatalf("row a = %#v", out.Rows[0])
	}
	if out.Rows[1]["followers"] != nil {
		t.Fatalf("row b = %#v", out.Rows[1])
	}
	want := Stats{RowsIn: 2, RowsOut: 2, Matched: 1, Enriched: true}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
	if _, ok := songs.Rows[0]["followers"]; ok {
		t.Fatal("input song table was modified")
	}
}

func TestSongs_ConcatOrderAndUnion(t *testing.T) {
	t.Parallel()

	a := &records.Table{Columns: []string{"title", "artist", "source"}, Rows: []records.Record{{"title": "1", "artist": "x", "source": "D1"}}}
	b := &records.Table{Columns: []string{"title", "tempo", "source"}, Rows: []records.Record{{"title": "2", "tempo": 99.0, "source": "D2"}, {"title": "1", "tempo": 1.0, "source": "D2"}}}

	out, st := Songs([]*records.Table{a, b}, nil)
	if !reflect.DeepEqual(out.Columns, []string{"title", "artist", "source", "tempo"}) {
		t.Fatalf("columns = %v", out.Columns)
	}
	var titles []any
	for _, r := range out.Rows {
		titles = append(titles, r["title"])
	}
	if !reflect.DeepEqual(titles, []any{"1", "2", "1"}) {
		t.Fatalf("titles = %v (no dedup, order kept)", titles)
	}
	if st.Enriched || st.RowsOut != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSongs_CollisionSuffix(t *testing.T) {
	t.Parallel()

	songs := &records.Table{Columns: []string{"artist", "popularity"}, Rows: []records.Record{{"artist": "a", "popularity": 50.0}}}
	artists := &records.Table{Columns: []string{"artist", "popularity"}, Rows: []records.Record{{"artist": "a", "popularity": 80.0}}}

	out, _ := Songs([]*records.Table{songs}, artists)
	if !reflect.DeepEqual(out.Columns, []string{"artist", "popularity", "popularity_artist"}) {
		t.Fatalf("columns = %v", out.Columns)
	}
	if out.Rows[0]["popularity"] != 50.0 || out.Rows[0]["popularity_artist"] != 80.0 {
		t.Fatalf("row = %#v", out.Rows[0])
	}
}

func TestSongs_CollisionSuffixNeverOverwrites(t *testing.T) {
	t.Parallel()

	songs := &records.Table{
		Columns: []string{"artist", "country", "country_artist"},
		Rows:    []records.Record{{"artist": "a", "country": "x", "country_artist": "keep"}},
	}
	artists := &records.Table{Columns: []string{"artist", "country"}, Rows: []records.Record{{"artist": "a", "country": "mx"}}}

	out, _ := Songs([]*records.Table{songs}, artists)
	want := []string{"artist", "country", "country_artist", "country_artist.1"}
	if !reflect.DeepEqual(out.Columns, want) {
		t.Fatalf("columns = %v, want %v", out.Columns, want)
	}
	row := out.Rows[0]
	if row["country"] != "x" || row["country_artist"] != "keep" || row["country_artist.1"] != "mx" {
		t.Fatalf("row = %#v", row)
	}
}

func TestSongs_SkipsWithoutJoinColumn(t *testing.T) {
	t.Parallel()

	songs := &records.Table{Columns: []string{"title"}, Rows: []records.Record{{"title": "x"}}}
	artists := &records.Table{Columns: []string{"artist", "followers"}, Rows: []records.Record{{"artist": "a", "followers": 1.0}}}

	out, st := Songs([]*records.Table{songs}, artists)
	if st.Enriched || !reflect.DeepEqual(out.Columns, []string{"title"}) {
		t.Fatalf("columns = %v stats = %+v", out.Columns, st)
	}
}

func TestSongs_RepeatedArtistYieldsOneRowPerMatch(t *testing.T) {
	t.Parallel()

	songs := &records.Table{Columns: []string{"artist"}, Rows: []records.Record{{"artist": "a"}}}
	artists := &records.Table{
		Columns: []string{"artist", "country"},
		Rows:    []records.Record{{"artist": "a", "country": "US"}, {"artist": "a", "country": "UK"}},
	}
	out, st := Songs([]*records.Table{songs}, artists)
	if out.Len() != 2 || st.Matched != 1 || st.RowsOut != 2 {
		t.Fatalf("rows = %#v stats = %+v", out.Rows, st)
	}
}
