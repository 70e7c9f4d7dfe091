// Package datasource abstracts where Harvest exports are read from.
package datasource

import (
	"context"
	"io"
)

// Source is one named input stream.
type Source interface {
	// Name identifies the source in diagnostics; "-" means standard input.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
