// Package json turns JSON exports into a records.Table.
//
// Two layouts are accepted:
//
//   - a single top-level array of objects:
//     [{"id":1,"name":"a"},{"id":2,"name":"b"}]
//   - newline-delimited objects (NDJSON):
//     {"id":1,"name":"a"}
//     {"id":2,"name":"b"}
//
// Parse tries the array layout first and falls back to NDJSON. Column order
// follows the first appearance of each key, numbers stay json.Number so the
// normalizer decides how to coerce them, and nested values are kept as their
// compact JSON text.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"musicetl/pkg/records"
)

// Parser implements parser.Parser for JSON input.
type Parser struct{}

// NewParser returns a JSON parser.
func NewParser() *Parser { return &Parser{} }

// Parse reads all of r, then decodes it as an array of objects or, failing
// that, as NDJSON. The skipped count is always zero: malformed lines fail the
// parse so the caller can fall back to another format.
func (p *Parser) Parse(r io.Reader) (*records.Table, int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("json parser: read: %w", err)
	}
	tbl, arrErr := DecodeArray(bytes.NewReader(b))
	if arrErr == nil {
		return tbl, 0, nil
	}
	tbl, lineErr := DecodeLines(bytes.NewReader(b))
	if lineErr == nil {
		return tbl, 0, nil
	}
	return nil, 0, fmt.Errorf("json parser: not an array (%v) nor NDJSON (%w)", arrErr, lineErr)
}

// DecodeArray decodes a single top-level array of objects. Anything after the
// closing bracket other than whitespace is an error.
func DecodeArray(r io.Reader) (*records.Table, error) {
	d := json.NewDecoder(r)
	d.UseNumber()

	var elems []json.RawMessage
	if err := d.Decode(&elems); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	if _, err := d.Token(); err != io.EOF {
		return nil, errors.New("decode array: trailing data after top-level array")
	}

	tbl := records.NewTable()
	for i, raw := range elems {
		rec, keys, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		addRow(tbl, rec, keys)
	}
	return tbl, nil
}

// DecodeLines decodes newline-delimited JSON objects. Blank lines are ignored.
func DecodeLines(r io.Reader) (*records.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	tbl := records.NewTable()
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		rec, keys, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		addRow(tbl, rec, keys)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	if tbl.Len() == 0 {
		return nil, errors.New("no JSON objects found")
	}
	return tbl, nil
}

func addRow(tbl *records.Table, rec records.Record, keys []string) {
	for _, k := range keys {
		tbl.AddColumn(k)
	}
	tbl.Append(rec)
}

// decodeObject decodes one JSON object and also returns its keys in document
// order, which a plain map decode would lose.
func decodeObject(raw []byte) (records.Record, []string, error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	tok, err := d.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	rec := records.Record{}
	var keys []string
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var v any
		if err := d.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("value for %q: %w", key, err)
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = flatten(v)
	}
	if _, err := d.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := d.Token(); err != io.EOF {
		return nil, nil, errors.New("trailing data after object")
	}
	return rec, keys, nil
}

// flatten keeps scalars as decoded and renders nested arrays/objects as
// compact JSON text so every cell stays a scalar.
func flatten(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return v
}
