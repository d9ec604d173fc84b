package anomaly

import (
	"fmt"
	"strings"

	"musicetl/pkg/records"
)

// Size thresholds under which a file earns a warning.
const (
	MinRows = 1000
	MinCols = 10
)

// Column kinds reported by Inspect.
const (
	KindEmpty    = "empty"
	KindNumeric  = "numeric"
	KindBool     = "bool"
	KindDateTime = "datetime"
	KindText     = "text"
)

// Info is a shape summary of a table.
type Info struct {
	Rows  int               `json:"rows"`
	Cols  int               `json:"cols"`
	Kinds map[string]string `json:"kinds"`
}

// Inspect summarizes the shape of tbl and the kind of each column.
func Inspect(tbl *records.Table) Info {
	info := Info{Rows: tbl.Len(), Cols: tbl.Width(), Kinds: map[string]string{}}
	if tbl == nil {
		return info
	}
	for _, c := range tbl.Columns {
		info.Kinds[c] = kindOf(tbl.Values(c))
	}
	return info
}

// SizeWarning returns a message when tbl is smaller than the recommended
// size, or "" otherwise.
func SizeWarning(tbl *records.Table) string {
	if tbl.Len() >= MinRows && tbl.Width() >= MinCols {
		return ""
	}
	return fmt.Sprintf("less than required rows/columns (>=%d rows and >=%d cols recommended)", MinRows, MinCols)
}

func kindOf(vals []any) string {
	present := 0
	numeric, boolean, dates := true, true, true
	for _, v := range vals {
		if records.IsMissing(v) {
			continue
		}
		present++
		if numeric {
			_, numeric = records.ToNumber(v)
		}
		if boolean {
			boolean = isBool(v)
		}
		if dates {
			_, dates = records.ParseDate(v)
		}
	}
	switch {
	case present == 0:
		return KindEmpty
	case numeric:
		return KindNumeric
	case boolean:
		return KindBool
	case dates:
		return KindDateTime
	}
	return KindText
}

func isBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "false"
	}
	return false
}
