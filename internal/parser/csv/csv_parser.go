// Package csv reads delimited text into a records.Table. The first row is the
// header; every other cell is kept as its literal string (type coercion is the
// normalizer's job) and empty cells become missing.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"musicetl/pkg/records"
)

// Options configures the CSV parser. The zero value reads comma-separated
// UTF-8 with a header row.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from every cell.
	TrimSpace bool

	// LogLimit caps how many skipped-row messages are logged.
	LogLimit int
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs but not concurrently.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.LogLimit <= 0 {
		opt.LogLimit = 50
	}
	return &Parser{opt: opt}
}

// Parse consumes r and returns the table plus the number of rows skipped for
// carrying more fields than the header. Short rows are padded with missing
// values. An input without a header row is an error.
func (p *Parser) Parse(r io.Reader) (*records.Table, int, error) {
	cr := csv.NewReader(decodeUTF8(r))
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	h, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read csv header: no columns to parse")
		}
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	tbl := records.NewTable(normalizeHeaders(h)...)

	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(row) > len(tbl.Columns) {
			if skipped < p.opt.LogLimit {
				log.Printf("csv: skipping line %d: expected %d fields, saw %d", line, len(tbl.Columns), len(row))
			}
			skipped++
			continue
		}
		rec := make(records.Record, len(tbl.Columns))
		for i, col := range tbl.Columns {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			val := row[i]
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[col] = emptyToNil(val)
		}
		tbl.Append(rec)
	}
	return tbl, skipped, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders makes header cells usable as record keys: a stray BOM is
// removed, blank cells get an "Unnamed: N" placeholder and repeated names are
// suffixed ".1", ".2", ... in order of appearance. Names are otherwise kept
// verbatim because source mappings match on the raw spelling.
func normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if strings.TrimSpace(c) == "" {
			c = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[c]; dup {
			seen[c] = n + 1
			c = c + "." + strconv.Itoa(n+1)
		} else {
			seen[c] = 0
		}
		res[i] = c
	}
	return res
}
