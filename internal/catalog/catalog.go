// Package catalog holds the static knowledge about upstream feeds: the closed
// set of source identities, the raw→canonical column mapping of each, and the
// canonical song and artist schemas they normalize into.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// Entity is the kind of row a source carries.
type Entity string

const (
	EntitySong   Entity = "song"
	EntityArtist Entity = "artist"
)

// Source identifies an upstream feed format.
type Source string

const (
	// D1 is the 30k Spotify songs CSV export.
	D1 Source = "D1"
	// D2 is the Spotify dashboard workbook (XLSM).
	D2 Source = "D2"
	// D3 is the Spotify artist statistics CSV.
	D3 Source = "D3"
)

// Sources lists every supported identity in a stable order.
var Sources = []Source{D1, D2, D3}

// UnsupportedSourceError is returned for an identity outside Sources.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source %q (use D1, D2 or D3)", e.Source)
}

// ParseSource accepts an identity in any case with surrounding spaces.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Sources, src) {
		return "", &UnsupportedSourceError{Source: s}
	}
	return src, nil
}

// SongSchema is the canonical song column order.
var SongSchema = []string{
	"track_id", "title", "artist", "album", "release_date", "duration_ms",
	"explicit", "popularity", "genre", "danceability", "energy", "valence",
	"tempo", "loudness", "acousticness", "speechiness", "liveness", "source",
}

// ArtistSchema is the canonical artist column order.
var ArtistSchema = []string{
	"artist", "followers", "artist_popularity", "primary_genre", "country",
	"monthly_listeners", "world_rank",
}

// Spec is everything the normalizer needs to know about one source.
type Spec struct {
	Source  Source
	Entity  Entity
	Key     []string          // logical dedup key, canonical names
	Mapping map[string]string // raw column -> canonical column
}

// Schema returns the canonical column order for the spec's entity.
func (s Spec) Schema() []string {
	if s.Entity == EntityArtist {
		return slices.Clone(ArtistSchema)
	}
	return slices.Clone(SongSchema)
}

var specs = map[Source]Spec{
	D1: {
		Source: D1,
		Entity: EntitySong,
		Key:    []string{"title", "artist"},
		Mapping: map[string]string{
			"track_id":     "track_id",
			"track_name":   "title",
			"title":        "title",
			"artists":      "artist",
			"artist":       "artist",
			"album":        "album",
			"album_name":   "album",
			"release_date": "release_date",
			"duration_ms":  "duration_ms",
			"explicit":     "explicit",
			"popularity":   "popularity",
			"genre":        "genre",
			"danceability": "danceability",
			"energy":       "energy",
			"valence":      "valence",
			"tempo":        "tempo",
			"loudness":     "loudness",
			"acousticness": "acousticness",
			"speechiness":  "speechiness",
			"liveness":     "liveness",
		},
	},
	D2: {
		Source: D2,
		Entity: EntitySong,
		Key:    []string{"title", "artist"},
		Mapping: map[string]string{
			"Track Name":   "title",
			"track_name":   "title",
			"Title":        "title",
			"Artist":       "artist",
			"Album":        "album",
			"Release Date": "release_date",
			"Duration_ms":  "duration_ms",
			"duration_ms":  "duration_ms",
			"Explicit":     "explicit",
			"Popularity":   "popularity",
			"Genre":        "genre",
			"Danceability": "danceability",
			"Energy":       "energy",
			"Valence":      "valence",
			"Tempo":        "tempo",
			"Loudness":     "loudness",
			"Acousticness": "acousticness",
			"Speechiness":  "speechiness",
			"Liveness":     "liveness",
		},
	},
	D3: {
		Source: D3,
		Entity: EntityArtist,
		Key:    []string{"artist"},
		Mapping: map[string]string{
			"artist":            "artist",
			"followers":         "followers",
			"popularity":        "artist_popularity",
			"genres":            "primary_genre",
			"monthly_listeners": "monthly_listeners",
			"world_rank":        "world_rank",
			"country":           "country",
		},
	},
}

// Lookup returns the spec for src or an *UnsupportedSourceError.
func Lookup(src Source) (Spec, error) {
	s, ok := specs[src]
	if !ok {
		return Spec{}, &UnsupportedSourceError{Source: string(src)}
	}
	return s, nil
}
