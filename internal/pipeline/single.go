package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"musicetl/internal/anomaly"
	"musicetl/internal/catalog"
	"musicetl/internal/extract"
	"musicetl/internal/jobs"
	"musicetl/internal/load"
	"musicetl/internal/metrics"
	"musicetl/internal/normalize"
	"musicetl/internal/storage"
	"musicetl/pkg/records"
)

// SingleStats describes one single-source run.
type SingleStats struct {
	Source    catalog.Source        `json:"source"`
	Input     string                `json:"input"`
	RowsIn    int                   `json:"rows_in"`
	RowsOut   int                   `json:"rows_out"`
	Columns   []string              `json:"columns"`
	Fallback  bool                  `json:"csv_fallback,omitempty"`
	Anomalies anomaly.Stats         `json:"anomalies"`
	Output    string                `json:"output"`
	Export    *storage.ExportResult `json:"export,omitempty"`
}

// RunSingle extracts in, normalizes it for src and writes the canonical table
// to out. An unsupported src fails before the file is read. With a non-empty
// id the run is tracked as a jobs.KindIngest job.
func (r *Runner) RunSingle(ctx context.Context, id string, src catalog.Source, in, out string) (SingleStats, error) {
	st := SingleStats{Source: src, Input: in, Output: out}
	spec, err := catalog.Lookup(src)
	if err != nil {
		return st, fmt.Errorf("pipeline: %w", err)
	}

	r.setStatus(ctx, id, jobs.StatusRunning)
	err = r.single(ctx, spec, &st)
	if err == nil {
		r.setStats(ctx, id, st)
		r.setOutput(ctx, id, out)
	}
	r.finish(ctx, id, jobs.KindIngest, err)
	return st, err
}

func (r *Runner) single(ctx context.Context, spec catalog.Spec, st *SingleStats) error {
	var res extract.Result
	if err := r.step("extract", func() (err error) {
		res, err = extract.Read(ctx, st.Input)
		return err
	}); err != nil {
		return err
	}
	st.RowsIn = res.Table.Len()
	st.Fallback = res.Fallback
	metrics.RecordRow(r.job(), "extracted", int64(st.RowsIn))

	var tbl *records.Table
	if err := r.step("normalize", func() (err error) {
		tbl, err = normalize.Table(res.Table, spec.Source)
		return err
	}); err != nil {
		return err
	}
	st.RowsOut = tbl.Len()
	st.Columns = tbl.Columns
	st.Anomalies = anomaly.Detect(tbl)
	metrics.RecordRow(r.job(), "normalized", int64(st.RowsOut))
	metrics.RecordRow(r.job(), "deduplicated", int64(st.RowsIn-st.RowsOut))

	if err := r.write(st.Output, tbl); err != nil {
		return err
	}
	exp, err := r.export(ctx, exportTable(r.Warehouse.Table, strings.ToLower(string(spec.Source))), tbl, spec.Key...)
	st.Export = exp
	log.Printf("pipeline: %s %s rows_in=%d rows_out=%d -> %s", spec.Source, st.Input, st.RowsIn, st.RowsOut, st.Output)
	return err
}

func (r *Runner) write(path string, tbl *records.Table) error {
	return r.step("write", func() error {
		if err := load.WriteCSV(path, tbl); err != nil {
			return err
		}
		metrics.RecordRow(r.job(), "written", int64(tbl.Len()))
		return nil
	})
}

// export copies tbl to the warehouse when one is configured.
func (r *Runner) export(ctx context.Context, table string, tbl *records.Table, keys ...string) (*storage.ExportResult, error) {
	if !r.Warehouse.Enabled() {
		return nil, nil
	}
	var res storage.ExportResult
	err := r.step("export", func() (err error) {
		res, err = r.Warehouse.Export(ctx, table, tbl, keys...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: export %s: %w", table, err)
	}
	metrics.RecordRow(r.job(), "exported", res.Rows)
	metrics.RecordBatches(r.job(), res.Batches)
	return &res, nil
}

func exportTable(base, suffix string) string {
	if base == "" || suffix == "" {
		return base
	}
	return base + "_" + suffix
}
