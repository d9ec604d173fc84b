package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"musicetl/pkg/records"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// rows aligned to columns and return the number of rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn, the number of batches flushed, and the first error.
//
// Cancellation: returns ctx.Err() when canceled. Progress is logged on each
// successful flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, int64, error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("storage: batch size must be > 0")
	}
	if copyFn == nil {
		return 0, 0, fmt.Errorf("storage: nil copy function")
	}

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastTotal int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(total-lastTotal) / since.Seconds()
		}
		log.Printf("loader: batch #%d rps=%.0f inserted=%d total=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond))
		lastFlush, lastTotal = now, total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, batches, err
				}
				return total, batches, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}

// Stream emits tbl's rows laid out along td on a channel that is closed when
// all rows are sent or ctx is done.
func Stream(ctx context.Context, td TableDef, tbl *records.Table) <-chan []any {
	out := make(chan []any, 64)
	go func() {
		defer close(out)
		for _, r := range tbl.Rows {
			select {
			case out <- Row(td, r):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ColumnNames returns the column names of td in order.
func (td TableDef) ColumnNames() []string {
	out := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		out[i] = c.Name
	}
	return out
}

// ExportResult reports one Export call.
type ExportResult struct {
	Table   string `json:"table"`
	Rows    int64  `json:"rows"`
	Batches int64  `json:"batches"`
}

// Export opens the backend described by cfg, creates the target table from
// tbl's inferred shape and bulk-loads every row.
func Export(ctx context.Context, cfg Config, tbl *records.Table, batchSize int) (ExportResult, error) {
	res := ExportResult{Table: cfg.Table}
	td := InferTable(cfg.Table, tbl, cfg.KeyColumns)
	cfg.Columns = td.ColumnNames()

	repo, err := New(ctx, cfg)
	if err != nil {
		return res, fmt.Errorf("export: open %s: %w", cfg.Kind, err)
	}
	defer repo.Close()

	if err := EnsureTable(ctx, cfg.Kind, repo, td); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	res.Rows, res.Batches, err = LoadBatches(ctx, cfg.Columns, Stream(ctx, td, tbl), batchSize, repo.CopyFrom)
	if err != nil {
		return res, fmt.Errorf("export: load %s: %w", cfg.Table, err)
	}
	return res, nil
}
