// Package records defines the in-memory tabular model shared by every stage of
// the pipeline: a Record is one row keyed by column name and a Table is an
// ordered column list plus its rows.
//
// Values are kept loosely typed. Parsers produce strings (CSV, Excel) or JSON
// scalars; the normalizer turns them into float64, bool and time.Time. A nil
// value is the missing marker.
package records

import (
	"slices"
)

// Record is a single row, keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns and the rows that populate them. Rows may
// lack a key for a column; such cells read as missing.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable returns an empty table with the given header.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width reports the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Has reports whether col is part of the header.
func (t *Table) Has(col string) bool {
	return t != nil && slices.Contains(t.Columns, col)
}

// HasAll reports whether every col is part of the header.
func (t *Table) HasAll(cols ...string) bool {
	for _, c := range cols {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

// Present filters cols down to the ones found in the header, keeping order.
func (t *Table) Present(cols ...string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Append adds rec as the last row.
func (t *Table) Append(rec Record) {
	t.Rows = append(t.Rows, rec)
}

// AddColumn appends col to the header when it is not there yet.
func (t *Table) AddColumn(col string) {
	if !t.Has(col) {
		t.Columns = append(t.Columns, col)
	}
}

// Values returns the column as a slice aligned with Rows.
func (t *Table) Values(col string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Clone deep-copies the header and every row map so stages can work on their
// own copy without the caller observing the change.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}
