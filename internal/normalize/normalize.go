// Package normalize maps a source table onto its canonical schema: rename,
// field coercion, clamps, key filtering, dedup, source tag and projection.
package normalize

import (
	"fmt"
	"log"

	"musicetl/internal/catalog"
	"musicetl/internal/transformer"
	"musicetl/internal/transformer/builtin"
	"musicetl/pkg/records"
)

// Rules is the declarative (field, rule) list; each rule fires only when its
// field is in the header.
var Rules = map[string]builtin.Kind{
	"track_id":          builtin.KindText,
	"title":             builtin.KindText,
	"artist":            builtin.KindText,
	"album":             builtin.KindText,
	"genre":             builtin.KindText,
	"release_date":      builtin.KindDate,
	"duration_ms":       builtin.KindNumber,
	"popularity":        builtin.KindNumber,
	"tempo":             builtin.KindNumber,
	"danceability":      builtin.KindNumber,
	"energy":            builtin.KindNumber,
	"valence":           builtin.KindNumber,
	"loudness":          builtin.KindNumber,
	"acousticness":      builtin.KindNumber,
	"speechiness":       builtin.KindNumber,
	"liveness":          builtin.KindNumber,
	"followers":         builtin.KindNumber,
	"artist_popularity": builtin.KindNumber,
	"monthly_listeners": builtin.KindNumber,
	"world_rank":        builtin.KindNumber,
	"explicit":          builtin.KindBool,
	"primary_genre":     builtin.KindFirst,
}

// Bounds are the declared business ranges.
var Bounds = map[string]builtin.Range{
	"duration_ms": {Min: 1, Max: 15 * 60 * 1000},
	"tempo":       {Min: 40, Max: 240},
}

// Chain builds the transformer chain for spec.
func Chain(spec catalog.Spec) transformer.Chain {
	c := transformer.Chain{
		builtin.Rename{Mapping: spec.Mapping},
		builtin.Normalize{},
		builtin.Coerce{Types: Rules},
		builtin.Clamp{Bounds: Bounds},
		builtin.Require{Fields: spec.Key},
		builtin.DeDup{Keys: spec.Key, Policy: "keep-first"},
	}
	if spec.Entity == catalog.EntitySong {
		c = append(c, builtin.Tag{Column: "source", Value: string(spec.Source)})
	}
	return append(c, builtin.Project{Columns: spec.Schema()})
}

// Table returns the canonical form of tbl for src. The input is not
// modified. An unsupported src is rejected before any row is read.
func Table(tbl *records.Table, src catalog.Source) (*records.Table, error) {
	spec, err := catalog.Lookup(src)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if tbl == nil {
		tbl = records.NewTable()
	}
	in := tbl.Len()
	out := Chain(spec).Apply(tbl.Clone())
	log.Printf("normalize %s: %d rows in, %d rows out, %d columns", src, in, out.Len(), out.Width())
	return out, nil
}
