// Package csv reads Harvest CSV exports one record at a time. It never
// buffers the whole input; rows reach the caller as soon as encoding/csv
// has parsed them.
package csv

import (
	"encoding/csv"
	"io"
	"strings"
)

// Options configures the reader. Zero values select the defaults.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune
	// Encoding names the byte encoding of the input; see Decode.
	Encoding string
}

// Reader is a parser.RowReader over CSV text.
//
// Field counts may vary from row to row; deciding whether a row is wide
// enough is the transformer's job, not the reader's. Quoting is strict: a
// malformed quote is an error, not a guess.
//
// encoding/csv drops empty lines. Reader puts them back as zero-field
// records, one per blank line, so a blank line in an export fails
// conversion instead of vanishing.
type Reader struct {
	cr    *csv.Reader
	lines *lineCounter
	line  int
	next  int // line on which the next record should start

	held     []string // record parsed past one or more blank lines
	heldLine int
	heldNext int
}

// NewReader wraps r according to opt.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	dr, err := Decode(r, opt.Encoding)
	if err != nil {
		return nil, err
	}
	lc := &lineCounter{r: dr}
	cr := csv.NewReader(lc)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{cr: cr, lines: lc, next: 1}, nil
}

// Read returns the next record. The returned slice is reused by the next
// call; callers that keep it must copy it.
func (r *Reader) Read() ([]string, error) {
	if r.held != nil {
		if r.next < r.heldLine {
			return r.blank(), nil
		}
		rec := r.held
		r.held = nil
		r.line, r.next = r.heldLine, r.heldNext
		return rec, nil
	}

	rec, err := r.cr.Read()
	if err == io.EOF {
		if r.next <= r.lines.total() {
			return r.blank(), nil
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	start, _ := r.cr.FieldPos(0)
	last := len(rec) - 1
	end, _ := r.cr.FieldPos(last)
	next := end + strings.Count(rec[last], "\n") + 1
	if start > r.next {
		r.held, r.heldLine, r.heldNext = rec, start, next
		return r.blank(), nil
	}
	r.line, r.next = start, next
	return rec, nil
}

func (r *Reader) blank() []string {
	r.line = r.next
	r.next++
	return []string{}
}

// Line reports the line on which the last returned record started.
func (r *Reader) Line() int { return r.line }

// Close is a no-op; the underlying stream belongs to the caller.
func (r *Reader) Close() error { return nil }

// lineCounter counts the lines of the decoded stream as encoding/csv
// consumes it. total is only meaningful once the stream is exhausted.
type lineCounter struct {
	r        io.Reader
	newlines int
	partial  bool // bytes seen after the last '\n'
}

func (l *lineCounter) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	for _, b := range p[:n] {
		if b == '\n' {
			l.newlines++
			l.partial = false
		} else {
			l.partial = true
		}
	}
	return n, err
}

func (l *lineCounter) total() int {
	if l.partial {
		return l.newlines + 1
	}
	return l.newlines
}
