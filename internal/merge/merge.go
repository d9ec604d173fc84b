// Package merge concatenates canonical song tables and enriches them with
// artist attributes.
package merge

import (
	"fmt"
	"log"

	"musicetl/pkg/records"
)

// JoinKey is the column songs and artists are matched on.
const JoinKey = "artist"

// Suffix marks artist columns whose name collides with a song column.
const Suffix = "_artist"

// Stats summarizes a merge.
type Stats struct {
	RowsIn   int  `json:"rows_in"`
	RowsOut  int  `json:"rows_out"`
	Matched  int  `json:"matched"`
	Enriched bool `json:"enriched"`
}

// Concat stacks tables in order. The header is the union of all headers in
// first-seen order; cells a table lacks read as missing.
func Concat(tables ...*records.Table) *records.Table {
	out := records.NewTable()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			out.AddColumn(c)
		}
		for _, r := range t.Rows {
			out.Append(r.Clone())
		}
	}
	return out
}

// Songs concatenates songs and left-joins artists onto them by exact artist
// equality. Unmatched songs keep missing artist fields. Enrichment is skipped
// when artists is nil or either side has no artist column.
func Songs(songs []*records.Table, artists *records.Table) (*records.Table, Stats) {
	base := Concat(songs...)
	st := Stats{RowsIn: base.Len()}

	if artists == nil || !base.Has(JoinKey) || !artists.Has(JoinKey) {
		if artists != nil {
			log.Printf("merge: no %q column on both sides, enrichment skipped", JoinKey)
		}
		st.RowsOut = base.Len()
		return base, st
	}
	out, matched := leftJoin(base, artists)
	st.Enriched = true
	st.Matched = matched
	st.RowsOut = out.Len()
	return out, st
}

// leftJoin emits one row per matching artist row, or the song row alone when
// nothing matches.
func leftJoin(left, right *records.Table) (*records.Table, int) {
	rename := make(map[string]string, len(right.Columns))
	out := records.NewTable(left.Columns...)
	for _, c := range right.Columns {
		if c == JoinKey {
			continue
		}
		name := c
		if left.Has(c) {
			name = c + Suffix
			for n := 1; out.Has(name) || right.Has(name); n++ {
				name = fmt.Sprintf("%s%s.%d", c, Suffix, n)
			}
		}
		rename[c] = name
		out.AddColumn(name)
	}

	index := make(map[string][]records.Record, right.Len())
	for _, r := range right.Rows {
		v := r[JoinKey]
		if records.IsMissing(v) {
			continue
		}
		k := records.Format(v)
		index[k] = append(index[k], r)
	}

	matched := 0
	for _, l := range left.Rows {
		var hits []records.Record
		if v := l[JoinKey]; !records.IsMissing(v) {
			hits = index[records.Format(v)]
		}
		if len(hits) == 0 {
			row := l.Clone()
			for _, name := range rename {
				row[name] = nil
			}
			out.Append(row)
			continue
		}
		matched++
		for _, h := range hits {
			row := l.Clone()
			for c, name := range rename {
				row[name] = h[c]
			}
			out.Append(row)
		}
	}
	return out, matched
}
