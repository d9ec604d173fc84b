// Package datasource defines where raw input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of raw input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
