package json

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"musicetl/pkg/records"
)

/*
TestParse_ArrayOfObjects verifies the primary layout:

  - column order follows first key appearance across elements,
  - numbers are kept as json.Number,
  - keys missing from an element read as missing.
*/
func TestParse_ArrayOfObjects(t *testing.T) {
	t.Parallel()

	const in = `[
	  {"title":"Song A","popularity":71,"explicit":true},
	  {"title":"Song B","artist":"x"}
	]`
	tbl, _, err := NewParser().Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"title", "popularity", "explicit", "artist"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("Columns = %v, want %v", tbl.Columns, want)
	}
	if got, ok := tbl.Rows[0]["popularity"].(json.Number); !ok || got.String() != "71" {
		t.Fatalf("popularity = %#v (%T), want json.Number(71)", tbl.Rows[0]["popularity"], tbl.Rows[0]["popularity"])
	}
	if tbl.Rows[0]["explicit"] != true {
		t.Fatalf("explicit = %#v", tbl.Rows[0]["explicit"])
	}
	if _, ok := tbl.Rows[1]["popularity"]; ok {
		t.Fatalf("row 1 should not carry popularity: %v", tbl.Rows[1])
	}
}

/*
TestParse_FallsBackToNDJSON verifies that input which is not a single array
is decoded line by line, skipping blank lines.
*/
func TestParse_FallsBackToNDJSON(t *testing.T) {
	t.Parallel()

	const in = `{"artist":"a","followers":10}

{"artist":"b","genres":["pop","rock"]}
`
	tbl, _, err := NewParser().Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []records.Record{
		{"artist": "a", "followers": json.Number("10")},
		{"artist": "b", "genres": `["pop","rock"]`},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Fatalf("Rows = %#v, want %#v", tbl.Rows, want)
	}
	if want := []string{"artist", "followers", "genres"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("Columns = %v", tbl.Columns)
	}
}

func TestParse_RejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`[1,2,3]`, `42`, `{"a":1} trailing`, ``, `not json`} {
		if _, _, err := NewParser().Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestDecodeArray_TrailingData(t *testing.T) {
	t.Parallel()

	if _, err := DecodeArray(strings.NewReader(`[{"a":1}] {"b":2}`)); err == nil {
		t.Fatal("expected trailing-data error")
	}
}
