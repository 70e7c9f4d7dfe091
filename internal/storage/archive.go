package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/alcm-b/toggl-import/internal/schema"
)

// ColumnDef describes one archive table column. Backends map Int to their
// integer type and everything else to their text type.
type ColumnDef struct {
	Name string
	Int  bool
}

// ArchiveColumns is the archive table layout: run bookkeeping followed by
// the Toggl columns in output order.
var ArchiveColumns = func() []ColumnDef {
	cols := []ColumnDef{
		{Name: "run_id"},
		{Name: "source"},
		{Name: "source_line", Int: true},
		{Name: "fingerprint"},
	}
	for _, name := range schema.TogglHeader {
		cols = append(cols, ColumnDef{Name: schema.ColumnIdent(name)})
	}
	return cols
}()

// ArchiveColumnNames returns the names of ArchiveColumns in order.
func ArchiveColumnNames() []string {
	out := make([]string, len(ArchiveColumns))
	for i, c := range ArchiveColumns {
		out[i] = c.Name
	}
	return out
}

// Fingerprint hashes a Toggl row with xxh3 so identical entries archived by
// different runs can be matched up. Fields are separated by 0x1f so that
// ("ab","c") and ("a","bc") differ.
func Fingerprint(rec []string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(rec, "\x1f")))
}

// Archive buffers the converted rows of one run and writes them in a single
// CopyFrom, so a run that fails halfway leaves no trace in the table.
type Archive struct {
	repo  Repository
	runID uuid.UUID
	rows  [][]any
}

// NewArchive returns an empty Archive with a fresh run id.
func NewArchive(repo Repository) *Archive {
	return &Archive{repo: repo, runID: uuid.New()}
}

// RunID identifies this run's rows in the archive table.
func (a *Archive) RunID() uuid.UUID { return a.runID }

// Add buffers one converted row together with where it came from.
func (a *Archive) Add(source string, line int, rec []string) {
	row := make([]any, 0, 4+len(rec))
	row = append(row, a.runID.String(), source, int64(line), Fingerprint(rec))
	for _, v := range rec {
		row = append(row, v)
	}
	a.rows = append(a.rows, row)
}

// Len is the number of buffered rows.
func (a *Archive) Len() int { return len(a.rows) }

// Commit writes every buffered row. An empty archive writes nothing.
func (a *Archive) Commit(ctx context.Context) (int64, error) {
	if len(a.rows) == 0 {
		return 0, nil
	}
	n, err := a.repo.CopyFrom(ctx, ArchiveColumnNames(), a.rows)
	if err != nil {
		return n, fmt.Errorf("archive run %s: %w", a.runID, err)
	}
	a.rows = a.rows[:0]
	return n, nil
}
