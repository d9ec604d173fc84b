// Package load writes pipeline output: a UTF-8 CSV file with a header row and,
// optionally, a copy of the same table in a warehouse database.
package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"musicetl/internal/storage"
	"musicetl/pkg/records"
)

// DefaultBatchSize is the warehouse batch size when Warehouse.BatchSize is 0.
const DefaultBatchSize = 5000

// Write renders tbl as CSV on w. Missing values are written as empty cells.
func Write(w io.Writer, tbl *records.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns); err != nil {
		return fmt.Errorf("load: write header: %w", err)
	}
	row := make([]string, len(tbl.Columns))
	for i, r := range tbl.Rows {
		for j, c := range tbl.Columns {
			row[j] = records.Format(r[c])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("load: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("load: flush: %w", err)
	}
	return nil
}

// WriteCSV writes tbl to path, creating parent directories. The file is
// written to a temporary sibling first and renamed into place.
func WriteCSV(path string, tbl *records.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("load: mkdir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("load: create %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := Write(f, tbl); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("load: close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("load: rename %s: %w", path, err)
	}
	log.Printf("load: wrote %s rows=%d cols=%d", path, tbl.Len(), tbl.Width())
	return nil
}

// Warehouse describes an optional database copy of the output.
type Warehouse struct {
	Kind      string // storage kind, e.g. "postgres"
	DSN       string
	Table     string
	BatchSize int
}

// Enabled reports whether a warehouse target is configured.
func (w Warehouse) Enabled() bool { return w.Kind != "" && w.Table != "" }

// Export copies tbl into the warehouse. table overrides w.Table when set;
// keys become the primary key of a newly created table.
func (w Warehouse) Export(ctx context.Context, table string, tbl *records.Table, keys ...string) (storage.ExportResult, error) {
	if table == "" {
		table = w.Table
	}
	size := w.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return storage.Export(ctx, storage.Config{
		Kind:       w.Kind,
		DSN:        w.DSN,
		Table:      table,
		KeyColumns: keys,
	}, tbl, size)
}
