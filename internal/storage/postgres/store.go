package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servigo/servigo/internal/db"
)

// Store implements every storage interface over a single pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database, ensures the schema, and returns a ready store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool without touching the schema.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping reports database reachability for the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
