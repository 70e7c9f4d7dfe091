// Package postgres archives converted rows into Postgres with pgx v5, using
// COPY FROM for the bulk load.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alcm-b/toggl-import/internal/storage"
	"github.com/alcm-b/toggl-import/internal/storage/sqldb"
)

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRepository opens a pool for dsn and pings it.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, table: table}, nil
}

// tableIdent splits a possibly schema-qualified name for pgx.
func tableIdent(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// CopyFrom streams rows with the COPY protocol. COPY is atomic: a failing row
// leaves the table untouched.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, tableIdent(r.table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("copy into %s: %s (%s): %w", r.table, pgErr.Detail, pgErr.SQLState(), err)
		}
		return 0, fmt.Errorf("copy into %s: %w", r.table, err)
	}
	return n, nil
}

// Exec runs a single statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }

// CreateTableSQL returns the archive DDL for table.
func CreateTableSQL(table string) string {
	defs := make([]string, len(storage.ArchiveColumns))
	for i, c := range storage.ArchiveColumns {
		typ := "TEXT"
		if c.Int {
			typ = "BIGINT"
		}
		defs[i] = fmt.Sprintf("%s %s NOT NULL", sqldb.DoubleQuote(c.Name), typ)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		sqldb.QualifiedName(table, sqldb.DoubleQuote), strings.Join(defs, ",\n  "))
}

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository, table string) error {
		if err := repo.Exec(ctx, CreateTableSQL(table)); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
		return nil
	})
}
