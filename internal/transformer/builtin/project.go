package builtin

import (
	"slices"

	"musicetl/pkg/records"
)

// Project narrows the table to Columns, in that order. Columns missing from
// the header are omitted, except on a table with no rows, which takes the
// full list.
type Project struct {
	Columns []string
}

func (p Project) Apply(t *records.Table) *records.Table {
	if t == nil {
		return t
	}
	if len(t.Rows) == 0 {
		t.Columns = slices.Clone(p.Columns)
		return t
	}
	keep := t.Present(p.Columns...)
	for _, r := range t.Rows {
		for k := range r {
			if !slices.Contains(keep, k) {
				delete(r, k)
			}
		}
	}
	t.Columns = keep
	return t
}
