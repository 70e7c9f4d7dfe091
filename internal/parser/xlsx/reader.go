// Package xlsx reads Harvest "Export to Excel" workbooks row by row, so a
// workbook can be converted without first saving it as CSV.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Reader is a parser.RowReader over one worksheet. Cells are returned with
// their display formatting applied, so dates and hours read the same as they
// would in a CSV export of the sheet.
type Reader struct {
	f     *excelize.File
	rows  *excelize.Rows
	sheet string
	line  int
}

// NewReader opens the workbook in r and positions it at the first row of
// sheet, or of the first worksheet when sheet is empty.
func NewReader(r io.Reader, sheet string) (*Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}
	return &Reader{f: f, rows: rows, sheet: sheet}, nil
}

// Read returns the next worksheet row. Trailing empty cells are not
// reported, so a short row reads as fewer fields.
func (r *Reader) Read() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", r.sheet, err)
		}
		return nil, io.EOF
	}
	r.line++
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sheet %q row %d: %w", r.sheet, r.line, err)
	}
	return cols, nil
}

// Line is the worksheet row number of the last returned row.
func (r *Reader) Line() int { return r.line }

// Sheet is the name of the worksheet being read.
func (r *Reader) Sheet() string { return r.sheet }

// Close releases the workbook.
func (r *Reader) Close() error {
	if err := r.rows.Close(); err != nil {
		_ = r.f.Close()
		return err
	}
	return r.f.Close()
}
