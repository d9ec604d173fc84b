// Package extract reads a source file into a records.Table, choosing the
// parser from the file extension and falling back to CSV for anything else or
// for a parse that fails.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"musicetl/internal/datasource"
	"musicetl/internal/datasource/file"
	"musicetl/internal/parser"
	csvparser "musicetl/internal/parser/csv"
	excelparser "musicetl/internal/parser/excel"
	jsonparser "musicetl/internal/parser/json"
	"musicetl/pkg/records"
)

// ExtractionError reports a file that could not be read or parsed, even with
// the CSV fallback.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Format names the parser a path dispatches to.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatJSON  Format = "json"
)

// FormatFor maps a path's lower-cased extension to a Format. Unknown
// extensions map to CSV.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsm":
		return FormatExcel
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Result carries the parsed table and a few facts about how it was obtained.
type Result struct {
	Table    *records.Table
	Format   Format // parser that produced Table
	Fallback bool   // true when the extension parser failed and CSV was used
	Skipped  int    // malformed rows dropped by the parser
}

// newParser is a seam for tests.
var newParser = func(f Format) parser.Parser {
	switch f {
	case FormatExcel:
		return excelparser.NewParser()
	case FormatJSON:
		return jsonparser.NewParser()
	default:
		return csvparser.NewParser(csvparser.Options{})
	}
}

// ReadFile is Read without the extraction details.
func ReadFile(ctx context.Context, path string) (*records.Table, error) {
	res, err := Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// Read parses path with the parser its extension selects. When that parser
// fails, the file is re-read as CSV, except for legacy binary workbooks; if that fails too, an *ExtractionError
// carrying both causes is returned.
func Read(ctx context.Context, path string) (Result, error) {
	format := FormatFor(path)
	tbl, skipped, err := parseWith(ctx, path, format)
	if err == nil {
		return Result{Table: tbl, Format: format, Skipped: skipped}, nil
	}
	if format == FormatCSV || isOpenError(err) || errors.Is(err, excelparser.ErrLegacyWorkbook) {
		return Result{}, &ExtractionError{Path: path, Err: err}
	}

	log.Printf("extract: %s parser failed for %s (%v); retrying as csv", format, filepath.Base(path), err)
	tbl, skipped, csvErr := parseWith(ctx, path, FormatCSV)
	if csvErr != nil {
		return Result{}, &ExtractionError{Path: path, Err: errors.Join(err, csvErr)}
	}
	return Result{Table: tbl, Format: FormatCSV, Fallback: true, Skipped: skipped}, nil
}

type openError struct{ err error }

func (e openError) Error() string { return e.err.Error() }
func (e openError) Unwrap() error { return e.err }

func isOpenError(err error) bool {
	var oe openError
	return errors.As(err, &oe)
}

// openSource is a seam for tests.
var openSource = func(path string) datasource.Source { return file.NewLocal(path) }

func parseWith(ctx context.Context, path string, f Format) (*records.Table, int, error) {
	rc, err := openSource(path).Open(ctx)
	if err != nil {
		return nil, 0, openError{err}
	}
	defer rc.Close()
	return newParser(f).Parse(rc)
}
