// Package excel reads the first worksheet of an Excel workbook (.xlsx, .xlsm)
// into a records.Table, using the first row as the header.
package excel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"musicetl/pkg/records"
)

// ErrLegacyWorkbook is returned for BIFF (.xls) workbooks, which are stored
// in an OLE2 compound file that excelize cannot open.
var ErrLegacyWorkbook = errors.New("excel: legacy .xls workbooks are not supported")

var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Parser implements parser.Parser for Excel workbooks.
type Parser struct{}

// NewParser returns an Excel parser.
func NewParser() *Parser { return &Parser{} }

// Parse opens the workbook from r and reads its first sheet. Cells are kept
// as the formatted strings excelize reports; empty cells become missing.
// Fully blank rows are dropped.
func (p *Parser) Parse(r io.Reader) (*records.Table, int, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(ole2Magic)); bytes.Equal(head, ole2Magic) {
		return nil, 0, ErrLegacyWorkbook
	}
	f, err := excelize.OpenReader(br)
	if err != nil {
		return nil, 0, fmt.Errorf("excel: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("excel: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("excel: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("excel: sheet %q is empty", sheets[0])
	}
	return fromRows(rows), 0, nil
}

// fromRows builds a table from a header row and ragged data rows.
func fromRows(rows [][]string) *records.Table {
	header := make([]string, len(rows[0]))
	seen := make(map[string]int, len(header))
	for i, h := range rows[0] {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		header[i] = h
	}

	tbl := records.NewTable(header...)
	for _, row := range rows[1:] {
		blank := true
		rec := make(records.Record, len(header))
		for i, col := range header {
			var v any
			if i < len(row) && row[i] != "" {
				v = row[i]
				blank = false
			}
			rec[col] = v
		}
		if blank {
			continue
		}
		tbl.Append(rec)
	}
	return tbl
}
