// Package clean is the schema-agnostic cleaning pass used when no source
// identity is declared: header normalization, text trimming, date parsing,
// imputation and full-row dedup.
package clean

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"musicetl/pkg/records"
)

// Unknown fills categorical columns that have no value to take a mode from.
const Unknown = "unknown"

// Report summarizes one cleaning pass.
type Report struct {
	RowsBefore            int            `json:"rows_before"`
	RowsAfter             int            `json:"rows_after"`
	RowsRemovedDuplicates int            `json:"rows_removed_duplicates"`
	Filled                map[string]int `json:"filled,omitempty"`
}

// Table returns a cleaned copy of tbl and its report.
func Table(tbl *records.Table) (*records.Table, Report) {
	if tbl == nil {
		tbl = records.NewTable()
	}
	out := tbl.Clone()
	renameColumns(out)
	textual := trimText(out)
	parseDates(out)
	filled := impute(out, textual)

	rep := Report{RowsBefore: out.Len()}
	Dedup(out)
	rep.RowsAfter = out.Len()
	rep.RowsRemovedDuplicates = rep.RowsBefore - rep.RowsAfter
	if len(filled) > 0 {
		rep.Filled = filled
	}
	return out, rep
}

// ColumnName trims and lower-cases name and turns spaces into underscores.
func ColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Dedup removes exact full-row duplicates in place, keeping the first.
func Dedup(t *records.Table) int {
	seen := records.NewSeen(t.Columns)
	out := t.Rows[:0]
	for _, r := range t.Rows {
		if !seen.Add(r) {
			out = append(out, r)
		}
	}
	removed := len(t.Rows) - len(out)
	clear(t.Rows[len(out):])
	t.Rows = out
	return removed
}

func renameColumns(t *records.Table) {
	used := make(map[string]bool, len(t.Columns))
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		name := ColumnName(c)
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", ColumnName(c), n)
		}
		used[name] = true
		cols[i] = name
	}
	for _, r := range t.Rows {
		vals := make([]any, len(cols))
		for i, c := range t.Columns {
			vals[i] = r[c]
		}
		clear(r)
		for i, c := range cols {
			r[c] = vals[i]
		}
	}
	t.Columns = cols
}

// trimText trims string cells, blanks "nan", and reports the columns that
// held any string at all.
func trimText(t *records.Table) map[string]bool {
	textual := map[string]bool{}
	for _, r := range t.Rows {
		for _, c := range t.Columns {
			s, ok := r[c].(string)
			if !ok {
				continue
			}
			textual[c] = true
			s = strings.TrimSpace(s)
			if s == "" || strings.EqualFold(s, "nan") {
				r[c] = nil
				continue
			}
			r[c] = s
		}
	}
	return textual
}

// parseDates converts *date* / *fecha* columns when every non-missing value
// parses; otherwise the column is left as it was.
func parseDates(t *records.Table) {
	for _, c := range t.Columns {
		if !strings.Contains(c, "date") && !strings.Contains(c, "fecha") {
			continue
		}
		parsed := make([]any, len(t.Rows))
		ok := true
		for i, r := range t.Rows {
			v := r[c]
			if records.IsMissing(v) {
				continue
			}
			d, good := records.ParseDate(v)
			if !good {
				ok = false
				break
			}
			parsed[i] = d
		}
		if !ok {
			continue
		}
		for i, r := range t.Rows {
			r[c] = parsed[i]
		}
	}
}

// impute fills missing cells: numeric columns take the median, others the
// mode or Unknown. A column with no values at all is numeric unless it held
// text that was blanked out.
func impute(t *records.Table, textual map[string]bool) map[string]int {
	filled := map[string]int{}
	for _, c := range t.Columns {
		vals := t.Values(c)
		var fill any
		if nums, present, ok := numericColumn(vals); ok && (len(present) > 0 || !textual[c]) {
			fill = Median(present)
			for i, r := range t.Rows {
				if !records.IsMissing(vals[i]) {
					r[c] = nums[i]
				}
			}
		} else if m, ok := Mode(vals); ok {
			fill = m
		} else {
			fill = Unknown
		}
		for i, r := range t.Rows {
			if records.IsMissing(vals[i]) {
				r[c] = fill
				filled[c]++
			}
		}
	}
	return filled
}

// numericColumn returns the column as numbers aligned with vals, plus the
// non-missing ones, when every non-missing value is numeric.
func numericColumn(vals []any) (aligned, present []float64, ok bool) {
	aligned = make([]float64, len(vals))
	for i, v := range vals {
		if records.IsMissing(v) {
			continue
		}
		f, ok := records.ToNumber(v)
		if !ok {
			return nil, nil, false
		}
		aligned[i] = f
		present = append(present, f)
	}
	return aligned, present, true
}

// Median of nums; 0 for an empty sample.
func Median(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	s := slices.Clone(nums)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Mode returns the most frequent non-missing value. Ties go to the value
// with the smallest text form.
func Mode(vals []any) (any, bool) {
	type entry struct {
		v any
		n int
	}
	counts := map[string]*entry{}
	for _, v := range vals {
		if records.IsMissing(v) {
			continue
		}
		k := records.Format(v)
		if e, ok := counts[k]; ok {
			e.n++
			continue
		}
		counts[k] = &entry{v: v, n: 1}
	}
	var (
		best    *entry
		bestKey string
	)
	for k, e := range counts {
		if best == nil || e.n > best.n || (e.n == best.n && k < bestKey) {
			best, bestKey = e, k
		}
	}
	if best == nil {
		return nil, false
	}
	return best.v, true
}
