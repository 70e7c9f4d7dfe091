// Package output writes Toggl import CSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVWriter writes records with a bare "\n" terminator, never CRLF.
// Writes are buffered; Flush pushes them to the underlying writer.
type CSVWriter struct {
	w    *csv.Writer
	rows int
}

// NewCSVWriter returns a writer over w. A zero comma selects ','.
func NewCSVWriter(w io.Writer, comma rune) *CSVWriter {
	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	cw.UseCRLF = false
	return &CSVWriter{w: cw}
}

// WriteHeader writes the header row. It does not count towards Rows.
func (c *CSVWriter) WriteHeader(header []string) error {
	if err := c.w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Write writes one data row.
func (c *CSVWriter) Write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return fmt.Errorf("write row %d: %w", c.rows+1, err)
	}
	c.rows++
	return nil
}

// Rows is the number of data rows written so far.
func (c *CSVWriter) Rows() int { return c.rows }

// Flush writes buffered rows and reports any write error seen so far.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
