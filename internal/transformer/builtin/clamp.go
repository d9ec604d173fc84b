package builtin

import "musicetl/pkg/records"

// Range is an inclusive numeric interval.
type Range struct {
	Min, Max float64
}

// Clamp pulls numeric values outside their field's Range to the nearest
// bound. Non-numeric and missing values are left alone.
type Clamp struct {
	Bounds map[string]Range
}

func (c Clamp) Apply(t *records.Table) *records.Table {
	if t == nil {
		return t
	}
	for field, rng := range c.Bounds {
		if !t.Has(field) {
			continue
		}
		for _, r := range t.Rows {
			f, ok := records.ToNumber(r[field])
			if !ok {
				continue
			}
			r[field] = min(max(f, rng.Min), rng.Max)
		}
	}
	return t
}
