// Package parser defines the contract shared by the format-specific readers
// that turn raw bytes into a records.Table.
package parser

import (
	"io"

	"musicetl/pkg/records"
)

// Parser reads a whole input into a table. The int result counts rows that
// were skipped as malformed without failing the parse.
type Parser interface {
	Parse(r io.Reader) (*records.Table, int, error)
}
