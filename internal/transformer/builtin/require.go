package builtin

import "musicetl/pkg/records"

// Require removes every row missing a value for one of Fields. Fields absent
// from the header are ignored.
type Require struct {
	Fields []string
}

func (r Require) Apply(t *records.Table) *records.Table {
	if t == nil {
		return t
	}
	fields := t.Present(r.Fields...)
	if len(fields) == 0 {
		return t
	}
	out := t.Rows[:0]
	for _, rec := range t.Rows {
		ok := true
		for _, f := range fields {
			if records.IsMissing(rec[f]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	clear(t.Rows[len(out):])
	t.Rows = out
	return t
}
