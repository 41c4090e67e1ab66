// Package postgres implements the Postgres sink backend with pgx. Batches are
// written with the COPY protocol through a pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crashwrangle/internal/ddl"
	"crashwrangle/internal/storage"
	"crashwrangle/internal/table"
)

// Dialect quotes with double quotes and uses IF NOT EXISTS.
var Dialect = ddl.Dialect{
	Name:  "postgres ddl",
	Quote: pgIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
	ForcePKNotNull: true,
}

// MapType maps column types to Postgres types. Times of day are written as
// "HH:MM:SS" text.
func MapType(t table.Type) string {
	switch t {
	case table.TypeInt, table.TypeNullableInt:
		return "BIGINT"
	case table.TypeFloat:
		return "DOUBLE PRECISION"
	case table.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Repository is a pgxpool-backed storage.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRepository opens a pool for cfg.DSN. pgxpool connects lazily; the
// first CopyFrom or Exec surfaces connection errors.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, table: cfg.Table}, nil
}

// CopyFrom streams rows with COPY FROM STDIN.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, SplitFQN(r.table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %s: %s (%s): %w", r.table, pgErr.Detail, pgErr.SQLState(), err)
		}
		return n, fmt.Errorf("copy into %s: %w", r.table, err)
	}
	return n, nil
}

// Exec runs a single statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }

var _ storage.Repository = (*Repository)(nil)

// SplitFQN turns "schema.table" into a pgx identifier, dropping empty parts.
func SplitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg)
	})
	storage.RegisterBackend("postgres", storage.Backend{Dialect: Dialect, MapType: MapType})
}
