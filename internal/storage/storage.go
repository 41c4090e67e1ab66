// Package storage is the optional database sink for the cleaned table.
//
// Backends register a Factory and a Dialect under a kind ("sqlite",
// "postgres", "mssql") from their init functions; importing
// crashwrangle/internal/storage/all enables every built-in backend. Callers
// stay backend-agnostic and go through New and Sink.
package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"crashwrangle/internal/ddl"
	"crashwrangle/internal/table"
)

// Repository is what the sink needs from a backend.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and reports how many
	// rows were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// Backend bundles how a kind renders DDL for a table.
type Backend struct {
	Dialect ddl.Dialect
	MapType func(table.Type) string
}

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	backends  = map[string]Backend{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// RegisterBackend installs (or replaces) the DDL description for kind.
func RegisterBackend(kind string, b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = b
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// CreateTableSQL renders the CREATE TABLE statement kind would run for t.
func CreateTableSQL(kind, fqn string, t *table.Table) (string, error) {
	mu.RLock()
	b, ok := backends[kind]
	mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL registered for storage.kind=%q", kind)
	}
	return b.Dialect.BuildCreateTableSQL(ddl.FromTable(fqn, t, b.MapType))
}

// EnsureTable creates the destination table for t when it does not exist.
func EnsureTable(ctx context.Context, kind string, repo Repository, fqn string, t *table.Table) error {
	sql, err := CreateTableSQL(kind, fqn, t)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// Encode converts a cell to a driver argument. Dates stay time.Time (UTC
// midnight); times of day become "HH:MM:SS" text; NaN becomes NULL.
func Encode(v table.Value) any {
	switch v.Kind {
	case table.KindString:
		return v.Str
	case table.KindInt:
		return v.Int
	case table.KindFloat:
		if math.IsNaN(v.Float) {
			return nil
		}
		return v.Float
	case table.KindDate:
		return v.Time
	case table.KindTime:
		return v.Time.Format(table.TimeLayout)
	}
	return nil
}

// Rows encodes every row of t.
func Rows(t *table.Table) [][]any {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = Encode(v)
		}
		out[i] = row
	}
	return out
}

// Sink writes t into cfg.Table: open, create the table if missing, then load
// in batches. It returns the number of rows written.
func Sink(ctx context.Context, cfg Config, t *table.Table, batchSize int) (int64, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if err := EnsureTable(ctx, cfg.Kind, repo, cfg.Table, t); err != nil {
		return 0, err
	}
	return LoadBatches(ctx, t.Names(), Rows(t), batchSize, repo.CopyFrom)
}
