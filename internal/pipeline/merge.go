package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"musicetl/internal/extract"
	"musicetl/internal/merge"
	"musicetl/internal/metrics"
	"musicetl/internal/storage"
	"musicetl/pkg/records"
)

// Default interim and processed file names.
const (
	D1Clean      = "d1_clean.csv"
	D2Clean      = "d2_clean.csv"
	D3Clean      = "d3_artists_clean.csv"
	TracksOutput = "tracks_clean.csv"
)

// MergeInput names the cleaned song tables, the cleaned artist table and
// the output path.
type MergeInput struct {
	Songs   []string `json:"songs"`
	Artists string   `json:"artists"`
	Out     string   `json:"out"`
}

// DefaultMergeInput returns the standard interim inputs and processed output
// under the given directories.
func DefaultMergeInput(interimDir, processedDir string) MergeInput {
	return MergeInput{
		Songs:   []string{filepath.Join(interimDir, D1Clean), filepath.Join(interimDir, D2Clean)},
		Artists: filepath.Join(interimDir, D3Clean),
		Out:     filepath.Join(processedDir, TracksOutput),
	}
}

// MergeStats describes a merge run.
type MergeStats struct {
	merge.Stats
	Output string                `json:"output"`
	Export *storage.ExportResult `json:"export,omitempty"`
}

// RunMerge concatenates the song tables, enriches them with artists and
// writes the result. Every input must exist; otherwise ErrMissingInput is
// returned before anything is read.
func (r *Runner) RunMerge(ctx context.Context, in MergeInput) (MergeStats, error) {
	st := MergeStats{Output: in.Out}
	if err := checkInputs(in); err != nil {
		return st, err
	}

	songs := make([]*records.Table, 0, len(in.Songs))
	for _, p := range in.Songs {
		tbl, err := r.read(ctx, p)
		if err != nil {
			return st, err
		}
		songs = append(songs, tbl)
	}
	artists, err := r.read(ctx, in.Artists)
	if err != nil {
		return st, err
	}

	var out *records.Table
	_ = r.step("merge", func() error {
		out, st.Stats = merge.Songs(songs, artists)
		return nil
	})
	metrics.RecordRow(r.job(), "merged", int64(st.RowsOut))

	if err := r.write(in.Out, out); err != nil {
		return st, err
	}
	st.Export, err = r.export(ctx, r.Warehouse.Table, out)
	return st, err
}

func (r *Runner) read(ctx context.Context, path string) (*records.Table, error) {
	var tbl *records.Table
	err := r.step("extract", func() (err error) {
		tbl, err = extract.ReadFile(ctx, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRow(r.job(), "extracted", int64(tbl.Len()))
	return tbl, nil
}

func checkInputs(in MergeInput) error {
	if len(in.Songs) == 0 || in.Artists == "" || in.Out == "" {
		return fmt.Errorf("%w: songs, artists and out are required", ErrMissingInput)
	}
	var missing []string
	for _, p := range append(append([]string{}, in.Songs...), in.Artists) {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, p)
		} else if err != nil {
			return fmt.Errorf("pipeline: stat %s: %w", p, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", "))
	}
	return nil
}
