package transformer

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow reports a row too narrow to derive every Toggl column.
	ErrMalformedRow = errors.New("malformed row")
	// ErrInvalidHours reports an hours field that is not a decimal number.
	ErrInvalidHours = errors.New("non-numeric hours")
)

// RowError ties a conversion failure to the input and line it came from.
type RowError struct {
	Source string // input name, "-" for stdin
	Line   int    // 1-based line (or worksheet row) within Source
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
