// Package mysql archives converted rows into MySQL or MariaDB through
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/alcm-b/toggl-import/internal/storage"
	"github.com/alcm-b/toggl-import/internal/storage/sqldb"
)

// Dialect is the MySQL flavor of SQL the repository speaks.
var Dialect = sqldb.Dialect{
	Driver:      "mysql",
	Quote:       sqldb.Backtick,
	Placeholder: sqldb.QuestionMark,
}

// NewRepository opens the database at dsn, e.g.
// "user:pass@tcp(localhost:3306)/timesheets".
func NewRepository(ctx context.Context, dsn, table string) (*sqldb.Repository, error) {
	return sqldb.Open(ctx, Dialect, dsn, table)
}

// CreateTableSQL returns the archive DDL for table.
func CreateTableSQL(table string) string {
	defs := make([]string, len(storage.ArchiveColumns))
	for i, c := range storage.ArchiveColumns {
		typ := "TEXT"
		if c.Int {
			typ = "BIGINT"
		}
		defs[i] = fmt.Sprintf("%s %s NOT NULL", sqldb.Backtick(c.Name), typ)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) DEFAULT CHARSET=utf8mb4",
		sqldb.QualifiedName(table, sqldb.Backtick), strings.Join(defs, ", "))
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("mysql", func(ctx context.Context, repo storage.Repository, table string) error {
		return repo.Exec(ctx, CreateTableSQL(table))
	})
}
