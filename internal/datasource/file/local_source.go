// Package file implements filesystem and standard-input data sources.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alcm-b/toggl-import/internal/datasource"
)

// StdinName is the conventional argument for "read standard input".
const StdinName = "-"

// Local is a data source backed by a file on the local disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the path the source was created with.
func (l *Local) Name() string { return l.path }

// Open opens the file for reading.
//
// Behavior:
//   - If ctx is already done, Open returns ctx.Err() without touching the
//     filesystem.
//   - Filesystem errors are wrapped with the path while still permitting
//     errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Stdin is a data source over an already-open stream, normally os.Stdin.
// Closing the returned reader leaves the stream open.
type Stdin struct{ r io.Reader }

// NewStdin wraps r.
func NewStdin(r io.Reader) *Stdin { return &Stdin{r: r} }

// Name returns StdinName.
func (s *Stdin) Name() string { return StdinName }

// Open returns the wrapped stream.
func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return io.NopCloser(s.r), nil
}

// FromArgs maps positional command-line arguments to sources the way filter
// programs do: no arguments reads stdin, and the argument "-" stands for
// stdin wherever it appears.
func FromArgs(args []string, stdin io.Reader) []datasource.Source {
	if len(args) == 0 {
		return []datasource.Source{NewStdin(stdin)}
	}
	out := make([]datasource.Source, 0, len(args))
	for _, a := range args {
		if a == StdinName {
			out = append(out, NewStdin(stdin))
			continue
		}
		out = append(out, NewLocal(a))
	}
	return out
}
