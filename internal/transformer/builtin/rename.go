// Package builtin contains simple, reusable table transformers.
package builtin

import "musicetl/pkg/records"

// Rename relabels columns found in Mapping. When several raw columns map to
// the same target, the first one in header order wins and the others keep
// their raw names. A column that is not mapped keeps its name and also keeps
// it reserved, so a mapped column never overwrites it.
type Rename struct {
	Mapping map[string]string
}

type renamePair struct{ from, to string }

func (r Rename) Apply(t *records.Table) *records.Table {
	if t == nil || len(r.Mapping) == 0 {
		return t
	}

	reserved := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := r.Mapping[c]; !ok {
			reserved[c] = true
		}
	}

	used := make(map[string]bool, len(t.Columns))
	var pairs []renamePair
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := c
		if to, ok := r.Mapping[c]; ok && !used[to] && (to == c || !reserved[to]) {
			name = to
		}
		used[name] = true
		cols = append(cols, name)
		if name != c {
			pairs = append(pairs, renamePair{c, name})
		}
	}
	t.Columns = cols
	if len(pairs) == 0 {
		return t
	}

	vals := make([]any, len(pairs))
	has := make([]bool, len(pairs))
	for _, row := range t.Rows {
		// Two passes so swaps (a->b, b->a) read before they write.
		for i, p := range pairs {
			vals[i], has[i] = row[p.from]
		}
		for _, p := range pairs {
			delete(row, p.from)
		}
		for i, p := range pairs {
			if has[i] {
				row[p.to] = vals[i]
			}
		}
	}
	return t
}
