package builtin

import (
	"reflect"
	"testing"

	"musicetl/pkg/records"
)

func TestRename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mapping  map[string]string
		in       *records.Table
		wantCols []string
		wantRows []records.Record
	}{
		{
			name:     "relabel and pass through",
			mapping:  map[string]string{"track_name": "title", "artists": "artist"},
			in:       &records.Table{Columns: []string{"track_name", "artists", "extra"}, Rows: []records.Record{{"track_name": "a", "artists": "b", "extra": 1}}},
			wantCols: []string{"title", "artist", "extra"},
			wantRows: []records.Record{{"title": "a", "artist": "b", "extra": 1}},
		},
		{
			name:     "first match wins",
			mapping:  map[string]string{"Track Name": "title", "track_name": "title"},
			in:       &records.Table{Columns: []string{"track_name", "Track Name"}, Rows: []records.Record{{"track_name": "x", "Track Name": "y"}}},
			wantCols: []string{"title", "Track Name"},
			wantRows: []records.Record{{"title": "x", "Track Name": "y"}},
		},
		{
			name:     "unmapped column keeps its name",
			mapping:  map[string]string{"Title": "title"},
			in:       &records.Table{Columns: []string{"Title", "title"}, Rows: []records.Record{{"Title": "x", "title": "y"}}},
			wantCols: []string{"Title", "title"},
			wantRows: []records.Record{{"Title": "x", "title": "y"}},
		},
		{
			name:     "swap",
			mapping:  map[string]string{"a": "b", "b": "a"},
			in:       &records.Table{Columns: []string{"a", "b"}, Rows: []records.Record{{"a": 1, "b": 2}}},
			wantCols: []string{"b", "a"},
			wantRows: []records.Record{{"b": 1, "a": 2}},
		},
		{
			name:     "sparse row",
			mapping:  map[string]string{"a": "x"},
			in:       &records.Table{Columns: []string{"a"}, Rows: []records.Record{{}}},
			wantCols: []string{"x"},
			wantRows: []records.Record{{}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Rename{Mapping: tc.mapping}.Apply(tc.in)
			if !reflect.DeepEqual(got.Columns, tc.wantCols) {
				t.Errorf("columns = %v, want %v", got.Columns, tc.wantCols)
			}
			if !reflect.DeepEqual(got.Rows, tc.wantRows) {
				t.Errorf("rows = %#v, want %#v", got.Rows, tc.wantRows)
			}
		})
	}
}
