// Package store is the persistence facade for alerts, incidents, and RCA
// reports. It talks to PostgreSQL directly over database/sql rather than
// through a generated ORM client: the teacher's generated client isn't
// available to regenerate here, so this package plays that role by hand,
// following the teacher's repository-method conventions (one file per
// aggregate, context-first methods, typed not-found errors).
package store

import (
	"database/sql"
)

// Store wraps a *sql.DB and exposes repository methods for every aggregate
// the service persists.
type Store struct {
	db *sql.DB
}

// New wraps an existing *sql.DB connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection pool, for callers (e.g. health checks)
// that need it directly.
func (s *Store) DB() *sql.DB {
	return s.db
}
