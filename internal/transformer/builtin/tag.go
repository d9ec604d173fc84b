package builtin

import "musicetl/pkg/records"

// Tag sets Column to Value on every row, adding the column if needed.
type Tag struct {
	Column string
	Value  any
}

func (g Tag) Apply(t *records.Table) *records.Table {
	if t == nil {
		return t
	}
	t.AddColumn(g.Column)
	for _, r := range t.Rows {
		r[g.Column] = g.Value
	}
	return t
}
