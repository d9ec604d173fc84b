package builtin

import (
	"strings"

	"musicetl/pkg/records"
)

// Normalize trims every string cell and turns non-breaking spaces into plain
// ones.
type Normalize struct{}

func (Normalize) Apply(t *records.Table) *records.Table {
	if t == nil {
		return t
	}
	for _, r := range t.Rows {
		for k, v := range r {
			if s, ok := v.(string); ok {
				r[k] = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			}
		}
	}
	return t
}
