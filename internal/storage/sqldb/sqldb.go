// Package sqldb is the database/sql plumbing shared by the backends that go
// through a plain driver (SQLite, MySQL): open-and-ping, transactional
// multi-row INSERT, and identifier quoting. Backends with a native bulk API
// (Postgres COPY, SQL Server bulk copy) do not use it.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Dialect captures the SQL differences between drivers.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Quote quotes a single identifier.
	Quote func(ident string) string
	// Placeholder returns the bind marker for the 1-based argument i.
	Placeholder func(i int) string
}

// QuestionMark is the "?" placeholder style.
func QuestionMark(int) string { return "?" }

// DoubleQuote quotes an identifier ANSI style.
func DoubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Backtick quotes an identifier MySQL style.
func Backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// QualifiedName quotes each dot-separated part of a possibly
// schema-qualified table name.
func QualifiedName(table string, quote func(string) string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// Repository implements storage.Repository over a *sql.DB.
type Repository struct {
	db    *sql.DB
	table string
	d     Dialect
}

// Open connects with d.Driver and pings with a short timeout so bad DSNs
// fail before any row is converted.
func Open(ctx context.Context, d Dialect, dsn, table string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Driver)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Driver, err)
	}
	return &Repository{db: db, table: table, d: d}, nil
}

// DB exposes the pool for backend-specific tuning.
func (r *Repository) DB() *sql.DB { return r.db }

// InsertSQL builds the parameterized INSERT used by CopyFrom.
func (r *Repository) InsertSQL(columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = r.d.Quote(c)
		marks[i] = r.d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QualifiedName(r.table, r.d.Quote),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "),
	)
}

// CopyFrom inserts rows with one prepared statement inside one transaction.
// Any failure rolls back every row of the call.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", r.d.Driver)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.d.Driver, err)
	}
	stmt, err := tx.PrepareContext(ctx, r.InsertSQL(columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: prepare insert: %w", r.d.Driver, err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: row %d has %d values for %d columns", r.d.Driver, i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: insert row %d: %w", r.d.Driver, i, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.d.Driver, err)
	}
	return inserted, nil
}

// Exec runs a single statement. Blank statements are ignored.
func (r *Repository) Exec(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: exec: %w", r.d.Driver, err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { _ = r.db.Close() }
