// Package transformer defines table-level transformation steps and the Chain
// that runs them in order.
package transformer

import "musicetl/pkg/records"

// Transformer rewrites a table. Implementations may mutate their input and
// return it; callers that need the original must pass a clone.
type Transformer interface {
	Apply(*records.Table) *records.Table
}

// Func adapts a plain function to Transformer.
type Func func(*records.Table) *records.Table

func (f Func) Apply(t *records.Table) *records.Table { return f(t) }

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in *records.Table) *records.Table {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
