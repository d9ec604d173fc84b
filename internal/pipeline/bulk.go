package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"musicetl/internal/anomaly"
	"musicetl/internal/catalog"
	"musicetl/internal/clean"
	"musicetl/internal/extract"
	"musicetl/internal/jobs"
	"musicetl/internal/merge"
	"musicetl/internal/metrics"
	"musicetl/internal/normalize"
	"musicetl/internal/storage"
	"musicetl/pkg/records"
)

// FileStats is the per-file report of a bulk run. Error is set when the file
// was skipped.
type FileStats struct {
	FileName      string         `json:"file_name"`
	InitialRows   int            `json:"initial_rows"`
	InitialCols   int            `json:"initial_cols"`
	Warning       string         `json:"warning,omitempty"`
	Inspect       *anomaly.Info  `json:"inspect,omitempty"`
	Anomalies     *anomaly.Stats `json:"anomalies,omitempty"`
	TransformInfo any            `json:"transform_info,omitempty"`
	CleanedRows   int            `json:"cleaned_rows"`
	CleanedCols   int            `json:"cleaned_cols"`
	Error         string         `json:"error,omitempty"`
}

// MergedStats describes the final concatenation of a bulk run.
type MergedStats struct {
	RowsBefore  int `json:"merged_rows_before"`
	RowsAfter   int `json:"merged_rows_after"`
	RowsRemoved int `json:"merged_rows_removed"`
}

// BulkStats is the report of a bulk run, stored as the job stats.
type BulkStats struct {
	Files       []FileStats           `json:"files"`
	Merged      *MergedStats          `json:"merged,omitempty"`
	CleanedFile string                `json:"cleaned_file,omitempty"`
	Warning     string                `json:"warning,omitempty"`
	Export      *storage.ExportResult `json:"export,omitempty"`
}

// Succeeded counts files that were cleaned.
func (b BulkStats) Succeeded() int {
	n := 0
	for _, f := range b.Files {
		if f.Error == "" {
			n++
		}
	}
	return n
}

// BulkOutput is the name of the bulk result written under the output dir.
func BulkOutput(id string) string {
	if id == "" {
		id = "bulk"
	}
	return "cleaned_" + id + ".csv"
}

// RunBulk cleans every file, concatenates the successes, removes duplicate
// rows and writes cleaned_<id>.csv under outDir. A non-empty srcName selects
// source normalization for every file instead of the generic cleaner; an
// unsupported name fails before any file is read.
//
// A file that cannot be read or cleaned is reported and skipped. The run
// fails with ErrNoFileCleaned only when no file survives. Progress goes to 90
// as files finish and to 100 once the output is written.
func (r *Runner) RunBulk(ctx context.Context, id string, paths []string, srcName, outDir string) (BulkStats, error) {
	var st BulkStats
	var src catalog.Source
	if srcName != "" {
		s, err := catalog.ParseSource(srcName)
		if err != nil {
			return st, fmt.Errorf("pipeline: %w", err)
		}
		src = s
	}

	r.setStatus(ctx, id, jobs.StatusRunning)
	r.setProgress(ctx, id, 0)
	err := r.bulk(ctx, id, paths, src, outDir, &st)
	r.setStats(ctx, id, st)
	if err == nil {
		r.setOutput(ctx, id, st.CleanedFile)
	}
	r.finish(ctx, id, jobs.KindBulk, err)
	return st, err
}

func (r *Runner) bulk(ctx context.Context, id string, paths []string, src catalog.Source, outDir string, st *BulkStats) error {
	st.Files = make([]FileStats, len(paths))
	cleaned := make([]*records.Table, len(paths))
	progress := make(chan struct{}, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			defer func() { progress <- struct{}{} }()
			if err := gctx.Err(); err != nil {
				return err
			}
			fs, tbl, err := r.bulkFile(gctx, p, src)
			st.Files[i] = fs
			if err != nil {
				r.appendError(ctx, id, fmt.Sprintf("Error processing %s: %v", fs.FileName, err))
				return nil
			}
			cleaned[i] = tbl
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 1; n <= len(paths); n++ {
			<-progress
			r.setProgress(ctx, id, n*90/len(paths))
		}
	}()
	err := g.Wait()
	<-done
	if err != nil {
		return err
	}

	var ok []*records.Table
	for _, t := range cleaned {
		if t != nil {
			ok = append(ok, t)
		}
	}
	if len(ok) == 0 {
		st.Warning = "no file was cleaned"
		return ErrNoFileCleaned
	}

	out := merge.Concat(ok...)
	m := MergedStats{RowsBefore: out.Len()}
	m.RowsRemoved = clean.Dedup(out)
	m.RowsAfter = out.Len()
	st.Merged = &m

	path := filepath.Join(outDir, BulkOutput(id))
	if err := r.write(path, out); err != nil {
		return err
	}
	st.CleanedFile = path
	log.Printf("pipeline: bulk %s cleaned %d/%d files, %d rows -> %s", id, len(ok), len(paths), m.RowsAfter, path)

	exp, err := r.export(ctx, exportTable(r.Warehouse.Table, "bulk"), out)
	st.Export = exp
	return err
}

// bulkFile reads and cleans one file. The returned stats are filled as far
// as processing got.
func (r *Runner) bulkFile(ctx context.Context, path string, src catalog.Source) (FileStats, *records.Table, error) {
	fs := FileStats{FileName: filepath.Base(path)}

	var res extract.Result
	if err := r.step("extract", func() (err error) {
		res, err = extract.Read(ctx, path)
		return err
	}); err != nil {
		fs.Error = err.Error()
		return fs, nil, err
	}
	raw := res.Table
	metrics.RecordRow(r.job(), "extracted", int64(raw.Len()))

	fs.InitialRows, fs.InitialCols = raw.Len(), raw.Width()
	fs.Warning = anomaly.SizeWarning(raw)
	info := anomaly.Inspect(raw)
	stats := anomaly.Detect(raw)
	fs.Inspect, fs.Anomalies = &info, &stats

	var out *records.Table
	if src != "" {
		err := r.step("normalize", func() (err error) {
			out, err = normalize.Table(raw, src)
			return err
		})
		if err != nil {
			fs.Error = err.Error()
			return fs, nil, err
		}
		fs.TransformInfo = map[string]any{"source": src, "rows_before": raw.Len(), "rows_after": out.Len()}
	} else {
		var rep clean.Report
		_ = r.step("clean", func() error {
			out, rep = clean.Table(raw)
			return nil
		})
		fs.TransformInfo = rep
	}
	metrics.RecordRow(r.job(), "cleaned", int64(out.Len()))
	fs.CleanedRows, fs.CleanedCols = out.Len(), out.Width()
	return fs, out, nil
}
