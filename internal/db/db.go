package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool against the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables and constraints the handlers rely on.
// Statements are idempotent so startup is safe against an existing database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL,
			address JSONB NOT NULL,
			password TEXT NOT NULL,
			photo TEXT,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			value NUMERIC NOT NULL CHECK (value > 0),
			proposed_value NUMERIC,
			location JSONB NOT NULL,
			service_type TEXT NOT NULL,
			creator UUID NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'open'
				CHECK (status IN ('open', 'accepted', 'completed', 'canceled')),
			accepted_by UUID REFERENCES users(id),
			images TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CHECK ((accepted_by IS NOT NULL) = (status IN ('accepted', 'completed')))
		)`,
		`CREATE TABLE IF NOT EXISTS service_requests (
			id UUID PRIMARY KEY,
			service UUID NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			proposer UUID NOT NULL REFERENCES users(id),
			proposed_value NUMERIC NOT NULL CHECK (proposed_value > 0),
			proposed_date TIMESTAMP WITH TIME ZONE NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'accepted', 'declined')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_one_accepted
			ON service_requests(service) WHERE status = 'accepted'`,
		`CREATE INDEX IF NOT EXISTS idx_requests_service ON service_requests(service)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			service UUID NOT NULL REFERENCES services(id),
			customer UUID NOT NULL REFERENCES users(id),
			provider UUID NOT NULL REFERENCES users(id),
			amount NUMERIC NOT NULL CHECK (amount > 0),
			payment_method TEXT,
			payment_status TEXT NOT NULL DEFAULT 'pending'
				CHECK (payment_status IN ('pending', 'completed', 'failed')),
			payment_provider_id TEXT,
			payment_date TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_provider_ref ON payments(payment_provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_services_status ON services(status)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
