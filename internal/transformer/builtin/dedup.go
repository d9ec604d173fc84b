package builtin

import (
	"strings"

	"musicetl/pkg/records"
)

// DeDup collapses rows sharing the same business key and chooses a winner
// according to Policy:
//
//   - "keep-first"   : keep the earliest occurrence (default)
//   - "keep-last"    : keep the latest occurrence
//   - "most-complete": keep the row with the most non-missing fields;
//     ties break by keep-first
//
// Only key columns present in the header take part; with none present the
// table is returned unchanged. Missing values compare equal to each other.
// Winners keep the position of the first row of their group.
type DeDup struct {
	Keys   []string
	Policy string
}

type dedupGroup struct {
	first int            // row index of the first member
	win   records.Record // current winner
	score int
}

func (d DeDup) Apply(t *records.Table) *records.Table {
	if t == nil || len(t.Rows) == 0 {
		return t
	}
	keys := t.Present(d.Keys...)
	if len(keys) == 0 {
		return t
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-first"
	}

	if policy == "keep-first" {
		seen := records.NewSeen(keys)
		out := t.Rows[:0]
		for _, r := range t.Rows {
			if !seen.Add(r) {
				out = append(out, r)
			}
		}
		clear(t.Rows[len(out):])
		t.Rows = out
		return t
	}

	buckets := make(map[uint64][]*dedupGroup, len(t.Rows))
	var groups []*dedupGroup
	for i, r := range t.Rows {
		h := records.Hash(r, keys)
		var g *dedupGroup
		for _, cand := range buckets[h] {
			if records.Equal(cand.win, r, keys) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &dedupGroup{first: i, win: r, score: completeness(r)}
			buckets[h] = append(buckets[h], g)
			groups = append(groups, g)
			continue
		}
		switch policy {
		case "most-complete":
			if s := completeness(r); s > g.score {
				g.win, g.score = r, s
			}
		default: // keep-last
			g.win = r
		}
	}

	out := make([]records.Record, len(groups))
	for i, g := range groups {
		out[i] = g.win
	}
	t.Rows = out
	return t
}

func completeness(r records.Record) int {
	n := 0
	for _, v := range r {
		if !records.IsMissing(v) {
			n++
		}
	}
	return n
}
