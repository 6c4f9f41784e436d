// Package storage exports finalized tables to SQL databases through a small
// backend registry.
//
// Backends register a Factory for their kind from init; callers import
// csvaudit/internal/storage/all (or a single backend) for the side effect and
// then stay backend-agnostic behind Repository.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"csvaudit/internal/ddl"
)

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the minimal surface the export needs from a database.
type Repository interface {
	// Dialect describes quoting and column types for DDL.
	Dialect() ddl.Dialect

	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// CopyFrom bulk-inserts rows into table. Each row is aligned to columns.
	// It returns the number of rows the database reported as inserted.
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
