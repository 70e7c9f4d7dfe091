// Package parser turns raw input streams into Harvest rows. Each input kind
// (CSV text, Excel workbook) has its own subpackage; Open picks one by file
// name so the driver never cares where rows come from.
package parser

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	csvparser "github.com/alcm-b/toggl-import/internal/parser/csv"
	xlsxparser "github.com/alcm-b/toggl-import/internal/parser/xlsx"
)

// RowReader yields one record per call and io.EOF after the last one.
type RowReader interface {
	Read() ([]string, error)
	// Line is the 1-based position of the record last returned by Read.
	Line() int
	Close() error
}

// Options configures every reader kind; each kind ignores what it does not use.
type Options struct {
	Comma    rune
	Encoding string
	Sheet    string
}

// Open returns a RowReader for the input called name. Names ending in .xlsx
// are read as Excel workbooks, everything else as CSV text.
func Open(name string, r io.Reader, opt Options) (RowReader, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		xr, err := xlsxparser.NewReader(r, opt.Sheet)
		if err != nil {
			return nil, err
		}
		return xr, nil
	}
	cr, err := csvparser.NewReader(r, csvparser.Options{
		Comma:    opt.Comma,
		Encoding: opt.Encoding,
	})
	if err != nil {
		return nil, err
	}
	return cr, nil
}

// ErrNoHeader reports an input stream that ended before its header row.
var ErrNoHeader = errors.New("no header row")
