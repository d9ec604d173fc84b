// Package anomaly computes read-only data-quality diagnostics on a table:
// missing counts, duplicate rows and IQR outliers.
package anomaly

import (
	"math"
	"sort"

	"musicetl/pkg/records"
)

// Fence is the IQR multiplier used for outlier fences.
const Fence = 1.5

// Outliers describes one numeric column.
type Outliers struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"outlier_count"`
}

// Stats is the diagnostic report for one table.
type Stats struct {
	MissingPerColumn map[string]int      `json:"missing_per_column"`
	Duplicates       int                 `json:"duplicates"`
	Outliers         map[string]Outliers `json:"outliers"`
}

// Detect reports diagnostics for tbl without modifying it.
func Detect(tbl *records.Table) Stats {
	st := Stats{
		MissingPerColumn: map[string]int{},
		Outliers:         map[string]Outliers{},
	}
	if tbl == nil {
		return st
	}
	for _, c := range tbl.Columns {
		vals := tbl.Values(c)
		missing := 0
		for _, v := range vals {
			if records.IsMissing(v) {
				missing++
			}
		}
		st.MissingPerColumn[c] = missing
		if nums, ok := Numeric(vals); ok && len(nums) > 0 {
			st.Outliers[c] = IQR(nums)
		}
	}
	st.Duplicates = Duplicates(tbl)
	return st
}

// Duplicates counts rows equal to an earlier row over every column.
func Duplicates(tbl *records.Table) int {
	seen := records.NewSeen(tbl.Columns)
	n := 0
	for _, r := range tbl.Rows {
		if seen.Add(r) {
			n++
		}
	}
	return n
}

// Numeric returns the non-missing values of a column when all of them are
// numbers.
func Numeric(vals []any) ([]float64, bool) {
	var out []float64
	for _, v := range vals {
		if records.IsMissing(v) {
			continue
		}
		f, ok := records.ToNumber(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// IQR applies the interquartile-range rule to a non-empty sample. Values
// strictly outside [Lower, Upper] are outliers.
func IQR(nums []float64) Outliers {
	s := append([]float64(nil), nums...)
	sort.Float64s(s)
	o := Outliers{Q1: Quantile(s, 0.25), Q3: Quantile(s, 0.75)}
	o.IQR = o.Q3 - o.Q1
	o.Lower = o.Q1 - Fence*o.IQR
	o.Upper = o.Q3 + Fence*o.IQR
	for _, f := range s {
		if f < o.Lower || f > o.Upper {
			o.Count++
		}
	}
	return o
}

// Quantile interpolates linearly between the closest ranks of a sorted
// sample.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
