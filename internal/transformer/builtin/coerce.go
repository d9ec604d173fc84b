package builtin

import (
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"

	"musicetl/pkg/records"
)

// Kind names a coercion rule.
type Kind string

const (
	// KindText casts to text, trims and lower-cases (NFC).
	KindText Kind = "text"
	// KindDate parses a calendar date; failures become missing.
	KindDate Kind = "date"
	// KindNumber parses a float64; failures become missing.
	KindNumber Kind = "number"
	// KindBool parses a tri-state boolean; unknown spellings become missing.
	KindBool Kind = "bool"
	// KindFirst keeps the first element of a comma-separated list as text.
	KindFirst Kind = "first"
)

// default truthy/falsy sets (lowercased).
var (
	truthy = map[string]struct{}{
		"1": {}, "t": {}, "true": {}, "yes": {}, "y": {},
	}
	falsy = map[string]struct{}{
		"0": {}, "f": {}, "false": {}, "no": {}, "n": {},
	}
)

// Coerce applies one rule per field. Fields absent from the header are
// skipped, so the same rule set serves every source.
type Coerce struct {
	Types map[string]Kind
}

func (c Coerce) Apply(t *records.Table) *records.Table {
	if t == nil || len(c.Types) == 0 {
		return t
	}
	for _, field := range t.Columns {
		kind, ok := c.Types[field]
		if !ok {
			continue
		}
		for _, r := range t.Rows {
			r[field] = coerceValue(kind, r[field])
		}
	}
	return t
}

func coerceValue(kind Kind, v any) any {
	if records.IsMissing(v) {
		return nil
	}
	switch kind {
	case KindText:
		return text(v)
	case KindDate:
		if d, ok := records.ParseDate(v); ok {
			return records.Truncate(d)
		}
		return nil
	case KindNumber:
		if f, ok := records.ToNumber(v); ok {
			return f
		}
		return nil
	case KindBool:
		return boolean(v)
	case KindFirst:
		s, _ := text(v).(string)
		first, _, _ := strings.Cut(s, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		return nil
	}
	return v
}

func text(v any) any {
	s, err := cast.ToStringE(v)
	if err != nil {
		s = records.Format(v)
	}
	s = strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
	if s == "" {
		return nil
	}
	return s
}

func boolean(v any) any {
	if b, ok := v.(bool); ok {
		return b
	}
	if s, ok := v.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		if _, ok := truthy[s]; ok {
			return true
		}
		if _, ok := falsy[s]; ok {
			return false
		}
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil
	}
	return b
}
