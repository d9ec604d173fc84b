package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"musicetl/internal/catalog"
)

// Default raw file names read by Local.
const (
	D1Raw = "d1_songs_30000.csv"
	D2Raw = "d2_spotify_dashboard.xlsm"
	D3Raw = "d3_spotify_artist_stats.csv"
)

// LocalStats is the report of a Local run.
type LocalStats struct {
	Sources []SingleStats `json:"sources"`
	Merge   MergeStats    `json:"merge"`
}

// Local normalizes the three raw sources under dataDir/raw into
// dataDir/interim and merges them into dataDir/processed.
func (r *Runner) Local(ctx context.Context, dataDir string) (LocalStats, error) {
	raw := filepath.Join(dataDir, "raw")
	interim := filepath.Join(dataDir, "interim")
	processed := filepath.Join(dataDir, "processed")

	steps := []struct {
		src     catalog.Source
		in, out string
	}{
		{catalog.D1, D1Raw, D1Clean},
		{catalog.D2, D2Raw, D2Clean},
		{catalog.D3, D3Raw, D3Clean},
	}
	var ls LocalStats
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return ls, err
		}
		st, err := r.RunSingle(ctx, "", s.src, filepath.Join(raw, s.in), filepath.Join(interim, s.out))
		if err != nil {
			return ls, fmt.Errorf("pipeline: local %s: %w", s.src, err)
		}
		log.Printf("[%s] rows_in=%d rows_out=%d -> %s", s.src, st.RowsIn, st.RowsOut, st.Output)
		ls.Sources = append(ls.Sources, st)
	}

	ms, err := r.RunMerge(ctx, DefaultMergeInput(interim, processed))
	ls.Merge = ms
	if err != nil {
		return ls, fmt.Errorf("pipeline: local merge: %w", err)
	}
	log.Printf("[MERGE] rows_in=%d rows_out=%d -> %s", ms.RowsIn, ms.RowsOut, ms.Output)
	return ls, nil
}
