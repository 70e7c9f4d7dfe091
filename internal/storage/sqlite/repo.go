// Package sqlite archives converted rows into a SQLite database through the
// pure-Go modernc driver, so the binary needs no cgo.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/alcm-b/toggl-import/internal/storage"
	"github.com/alcm-b/toggl-import/internal/storage/sqldb"
)

// Dialect is the SQLite flavor of SQL the repository speaks.
var Dialect = sqldb.Dialect{
	Driver:      "sqlite",
	Quote:       sqldb.DoubleQuote,
	Placeholder: sqldb.QuestionMark,
}

// NewRepository opens the database at dsn, e.g. "toggl.db" or
// "file:toggl.db?_pragma=busy_timeout(5000)".
func NewRepository(ctx context.Context, dsn, table string) (*sqldb.Repository, error) {
	r, err := sqldb.Open(ctx, Dialect, dsn, table)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per connection.
	r.DB().SetMaxOpenConns(1)
	return r, nil
}

// CreateTableSQL returns the archive DDL for table.
func CreateTableSQL(table string) string {
	defs := make([]string, len(storage.ArchiveColumns))
	for i, c := range storage.ArchiveColumns {
		typ := "TEXT"
		if c.Int {
			typ = "INTEGER"
		}
		defs[i] = fmt.Sprintf("%s %s NOT NULL", sqldb.DoubleQuote(c.Name), typ)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		sqldb.QualifiedName(table, sqldb.DoubleQuote), strings.Join(defs, ", "))
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("sqlite", func(ctx context.Context, repo storage.Repository, table string) error {
		return repo.Exec(ctx, CreateTableSQL(table))
	})
}
